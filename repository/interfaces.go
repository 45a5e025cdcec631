package repository

import (
	"context"
	"go_datachat_backend/models"
)

type MessageRepository interface {
	Upsert(ctx context.Context, record *models.MessageRecord) error
	Delete(ctx context.Context, id string) error
	SetBookmark(ctx context.Context, id string, bookmarked bool) error
	GetByID(ctx context.Context, id string) (*models.MessageRecord, error)
	ListByConversation(ctx context.Context, convoID string) ([]*models.MessageRecord, error)
}

type ConversationRepository interface {
	Create(ctx context.Context, record *models.ConversationRecord) error
	Update(ctx context.Context, record *models.ConversationRecord) error
	Rename(ctx context.Context, id string, name string) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.ConversationRecord, error)
	List(ctx context.Context) ([]*models.ConversationRecord, error)
}
