package main

import (
	"context"
	"go_datachat_backend/bootstrap"
	"go_datachat_backend/config"
	"go_datachat_backend/middleware"
	"go_datachat_backend/pkg/logging"
	"go_datachat_backend/routes"
	"go_datachat_backend/services"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}
	logging.Init()

	cfg := config.LoadConfig()
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// hydrate conversations; a fresh install gets one default conversation
	if err := app.Services.ChatService.LoadConversations(ctx); err != nil {
		log.Fatal(err)
	}
	if len(app.Services.ChatService.Registry().List()) == 0 {
		if _, err := app.Services.ChatService.CreateConversation(ctx, ""); err != nil {
			log.Fatal(err)
		}
	}

	services.StartPersistRetryWorker(ctx, app.Repositories.MessageRepository, app.Infrastructure.Queue, 30*time.Second)

	fiberApp := fiber.New()
	fiberApp.Use(middleware.CORS())
	fiberApp.Use(middleware.Logger())

	routes.RegisterChatRoutes(fiberApp, app.Handlers.ChatHandler)
	routes.RegisterConversationRoutes(fiberApp, app.Handlers.ConversationHandler)
	routes.RegisterShareRoutes(fiberApp, app.Handlers.ShareHandler)
	routes.SetupWebSocketRoutes(fiberApp, app.Handlers.WSHandler)

	port := cfg.HttpPort
	if port == "" {
		port = "3000"
	}

	go func() {
		logging.Logger.Info("Server running", "port", port)
		if err := fiberApp.Listen(":" + port); err != nil {
			logging.Logger.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("shutting down")
	cancel()
	if err := fiberApp.ShutdownWithTimeout(10 * time.Second); err != nil {
		logging.Logger.Error("fail fiber shutdown", "error", err)
	}
	if err := app.Shutdown(); err != nil {
		logging.Logger.Error("fail app shutdown", "error", err)
	}
}
