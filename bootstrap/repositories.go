package bootstrap

import (
	"go_datachat_backend/platform/database"
	"go_datachat_backend/repository"
)

type Repositories struct {
	MessageRepository      repository.MessageRepository
	ConversationRepository repository.ConversationRepository
}

func NewRepositories(db *database.DB) *Repositories {
	sqlDB := db.GetDatabase()
	return &Repositories{
		MessageRepository:      repository.NewMessageRepository(sqlDB),
		ConversationRepository: repository.NewConversationRepository(sqlDB),
	}
}
