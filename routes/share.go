package routes

import (
	"go_datachat_backend/handlers"

	"github.com/gofiber/fiber/v2"
)

func RegisterShareRoutes(app *fiber.App, shareHandler *handlers.ShareHandler) {
	app.Post("api/chat/:convo_id/share", shareHandler.CreateShare)
	app.Get("api/share/*", shareHandler.GetShare)
}
