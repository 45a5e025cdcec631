package routes

import (
	"go_datachat_backend/handlers"

	"github.com/gofiber/fiber/v2"
)

func RegisterConversationRoutes(app *fiber.App, handler *handlers.ConversationHandler) {
	conversations := app.Group("api/conversations")
	conversations.Post("/", handler.Create)
	conversations.Get("/", handler.List)
	conversations.Get("/:convo_id", handler.Get)
	conversations.Delete("/:convo_id", handler.Delete)
	conversations.Patch("/:convo_id/name", handler.Rename)
	conversations.Put("/:convo_id/database", handler.BindDatabase)
}
