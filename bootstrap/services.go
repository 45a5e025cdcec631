package bootstrap

import (
	"go_datachat_backend/config"
	"go_datachat_backend/models"
	"go_datachat_backend/pkg/logging"
	"go_datachat_backend/platform/cache"
	"go_datachat_backend/services"
)

type Services struct {
	ChatService  *services.ChatService
	Orchestrator *services.TaskOrchestrator
	ShareService *services.ShareService
	JobsClient   services.JobsClient
}

func NewServices(cfg *config.Config, repos *Repositories, infra *Infrastructure) *Services {
	res := &Services{}

	store := services.NewMessageStore()
	registry := services.NewSessionRegistry()

	chatService := services.NewChatService(store, registry, repos.ConversationRepository, repos.MessageRepository)
	res.ChatService = chatService

	// write-behind persistence, failures parked on the redis queue
	chatService.Subscribe(services.NewPersistenceSubscriber(repos.MessageRepository, infra.Queue))

	// pubsub fan-out for websocket consumers
	publisher := infra.EventPublisher
	chatService.Subscribe(func(event models.MessageEvent) {
		go func() {
			if err := publisher.PublishMessageEvent(&event); err != nil {
				logging.Logger.Error("fail publish message event", "error", err)
			}
		}()
	})

	jobsClient := services.NewHTTPJobsClient(cfg)
	res.JobsClient = jobsClient

	suggestionsCache := cache.NewTypedCache[[]string](infra.Cache)
	orchestrator := services.NewTaskOrchestrator(chatService, jobsClient, suggestionsCache, cfg.PollInterval, cfg.FillerInterval)
	res.Orchestrator = orchestrator

	shareService := services.NewShareService(chatService, infra.Storage)
	res.ShareService = shareService

	return res
}
