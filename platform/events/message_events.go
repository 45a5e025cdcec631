package events

import (
	"context"
	"encoding/json"
	"go_datachat_backend/models"
	"go_datachat_backend/pkg/logging"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	MessageEventChannel = "messages:events"
)

// EventPublisher fans message-store mutations out to websocket consumers via
// redis pubsub.
type EventPublisher struct {
	redisClient *redis.Client
}

func NewEventPublisher(redisClient *redis.Client) *EventPublisher {
	return &EventPublisher{redisClient: redisClient}
}

func (p *EventPublisher) PublishMessageEvent(event *models.MessageEvent) error {
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		logging.Logger.Error("fail PublishMessageEvent", "error", err)
		return err
	}
	ctx := context.Background()
	if err := p.redisClient.Publish(ctx, MessageEventChannel, string(data)).Err(); err != nil {
		logging.Logger.Error("fail PublishMessageEvent", "error", err)
		return err
	}
	return nil
}

func (p *EventPublisher) SubscribeMessageEvents(ctx context.Context) (<-chan *models.MessageEvent, error) {
	pubsub := p.redisClient.Subscribe(ctx, MessageEventChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		logging.Logger.Error("fail SubscribeMessageEvents", "error", err)
		return nil, err
	}
	ch := make(chan *models.MessageEvent, 100)

	go func() {
		defer close(ch)
		defer func(pubsub *redis.PubSub) {
			if err := pubsub.Close(); err != nil {
				logging.Logger.Error("fail SubscribeMessageEvents", "error", err)
			}
		}(pubsub)

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-pubsub.Channel():
				var event models.MessageEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logging.Logger.Error("Failed to unmarshal event", "error", err)
					continue
				}

				select {
				case ch <- &event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
