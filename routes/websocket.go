package routes

import (
	"go_datachat_backend/handlers"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func SetupWebSocketRoutes(app *fiber.App, wsHandler *handlers.WSHandler) {
	ws := app.Group("/ws")

	// WebSocket route
	ws.Use("/conversation/:convo_id", wsHandler.WebSocketUpgrade)
	ws.Get("/conversation/:convo_id", websocket.New(wsHandler.HandleConversationEvents))
}
