package bootstrap

import "go_datachat_backend/handlers"

type Handlers struct {
	ChatHandler         *handlers.ChatHandler
	ConversationHandler *handlers.ConversationHandler
	ShareHandler        *handlers.ShareHandler
	WSHandler           *handlers.WSHandler
}

func NewHandlers(services *Services, infra *Infrastructure) *Handlers {
	res := &Handlers{}
	res.ChatHandler = handlers.NewChatHandler(services.ChatService, services.Orchestrator)
	res.ConversationHandler = handlers.NewConversationHandler(services.ChatService)
	res.ShareHandler = handlers.NewShareHandler(services.ShareService)
	res.WSHandler = handlers.NewWSHandler(infra.EventPublisher)
	return res
}
