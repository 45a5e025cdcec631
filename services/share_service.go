package services

import (
	"context"
	"fmt"
	"go_datachat_backend/models"
	"go_datachat_backend/platform/storage"
	"time"
)

const shareLinkTTL = 7 * 24 * time.Hour

// ShareService snapshots a conversation into object storage and hands out
// presigned read links, so shared conversations stay frozen at share time.
type ShareService struct {
	chat    *ChatService
	storage *storage.Service
}

func NewShareService(chat *ChatService, storageService *storage.Service) *ShareService {
	return &ShareService{
		chat:    chat,
		storage: storageService,
	}
}

// CreatePublicLink snapshots the conversation and returns the object key plus
// a presigned URL for it.
func (s *ShareService) CreatePublicLink(ctx context.Context, convoID string) (string, string, error) {
	convo, ok := s.chat.Registry().ByID(convoID)
	if !ok {
		return "", "", fmt.Errorf("conversation %s not found", convoID)
	}
	messages, err := s.chat.Messages(ctx, convoID)
	if err != nil {
		return "", "", err
	}

	snapshot := &models.ShareSnapshot{
		ConvoID:   convo.ID,
		Name:      convo.Name,
		Messages:  messages,
		CreatedAt: time.Now().UTC(),
	}
	key, err := s.storage.PutSnapshot(ctx, snapshot)
	if err != nil {
		return "", "", err
	}
	url, err := s.storage.GeneratePresignedGetDownload(key, time.Now().Add(shareLinkTTL))
	if err != nil {
		return "", "", err
	}
	return key, url, nil
}

// ReadPublicLink loads a snapshot by its object key.
func (s *ShareService) ReadPublicLink(ctx context.Context, key string) (*models.ShareSnapshot, error) {
	return s.storage.GetSnapshot(ctx, key)
}
