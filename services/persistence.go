package services

import (
	"context"
	"encoding/json"
	"go_datachat_backend/models"
	"go_datachat_backend/pkg/logging"
	"go_datachat_backend/platform/cache"
	"go_datachat_backend/repository"
	"time"
)

const persistRetryQueue = "message_persist_retry"

// NewPersistenceSubscriber returns the write-behind subscriber that mirrors
// store mutations into the repository. Failed writes are parked on the redis
// queue and replayed by the retry worker.
func NewPersistenceSubscriber(msgRepo repository.MessageRepository, mq cache.MessageQueue) MessageSubscriber {
	return func(event models.MessageEvent) {
		go func() {
			if err := applyMessageEvent(context.Background(), msgRepo, &event); err != nil {
				logging.Logger.Error("fail persist message event",
					"error", err,
					"type", event.Type,
					"messageID", event.MessageID,
				)
				if err := mq.PushToQueue(persistRetryQueue, event); err != nil {
					logging.Logger.Error("fail park persist event", "error", err)
				}
			}
		}()
	}
}

func applyMessageEvent(ctx context.Context, msgRepo repository.MessageRepository, event *models.MessageEvent) error {
	switch event.Type {
	case models.MessageEventInserted, models.MessageEventEdited:
		if event.Message == nil {
			return nil
		}
		// loading placeholders are transient, their edits still land later
		if event.Message.IsLoading {
			return nil
		}
		return msgRepo.Upsert(ctx, models.NewMessageRecord(event.Message))
	case models.MessageEventRemoved:
		return msgRepo.Delete(ctx, event.MessageID)
	default:
		return nil
	}
}

// StartPersistRetryWorker drains parked events until ctx is cancelled.
func StartPersistRetryWorker(ctx context.Context, msgRepo repository.MessageRepository, mq cache.MessageQueue, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				drainPersistQueue(ctx, msgRepo, mq)
			}
		}
	}()
}

func drainPersistQueue(ctx context.Context, msgRepo repository.MessageRepository, mq cache.MessageQueue) {
	for {
		raw, err := mq.PopFromQueue(persistRetryQueue)
		if err != nil {
			// empty queue pops fail with redis.Nil; nothing to drain
			return
		}
		payload, ok := raw.(string)
		if !ok {
			continue
		}
		var event models.MessageEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			logging.Logger.Error("fail decode parked event", "error", err)
			continue
		}
		if err := applyMessageEvent(ctx, msgRepo, &event); err != nil {
			logging.Logger.Error("fail replay parked event", "error", err, "messageID", event.MessageID)
			if err := mq.PushToQueue(persistRetryQueue, event); err != nil {
				logging.Logger.Error("fail re-park event", "error", err)
			}
			return
		}
	}
}
