package routes

import (
	"go_datachat_backend/handlers"

	"github.com/gofiber/fiber/v2"
)

func RegisterChatRoutes(app *fiber.App, chatHandler *handlers.ChatHandler) {
	chats := app.Group("api/chat")
	chats.Post("/:convo_id/prompts", chatHandler.SubmitPrompt)
	chats.Post("/:convo_id/understand", chatHandler.UnderstandDatabase)
	chats.Get("/:convo_id/messages", chatHandler.GetMessages)
	chats.Get("/:convo_id/flow", chatHandler.GetFlow)
	chats.Put("/:convo_id/messages/:message_id/bookmark", chatHandler.SetBookmark)
}
