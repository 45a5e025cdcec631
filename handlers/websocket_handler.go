package handlers

import (
	"context"
	"encoding/json"
	"go_datachat_backend/pkg/logging"
	"go_datachat_backend/platform/events"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WSHandler struct {
	eventPublisher *events.EventPublisher
}

func NewWSHandler(eventPublisher *events.EventPublisher) *WSHandler {
	return &WSHandler{eventPublisher: eventPublisher}
}

func (h *WSHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.Status(400).JSON(fiber.Map{"error": "Not a websocket request"})
}

// HandleConversationEvents streams message mutations of one conversation to
// the client until it disconnects.
func (h *WSHandler) HandleConversationEvents(c *websocket.Conn) {
	convoID := c.Params("convo_id")

	logging.Logger.Info("WebSocket connected", "convoID", convoID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventChan, err := h.eventPublisher.SubscribeMessageEvents(ctx)
	if err != nil {
		logging.Logger.Error("Failed to subscribe to events", "error", err)
		if err := c.WriteMessage(websocket.TextMessage, []byte(`{"error":"Failed to subscribe"}`)); err != nil {
			return
		}
		return
	}

	err = c.WriteJSON(fiber.Map{
		"type":     "connected",
		"message":  "WebSocket connected successfully",
		"convo_id": convoID,
	})
	if err != nil {
		return
	}

	for {
		select {
		case event := <-eventChan:
			if event == nil {
				return
			}
			if event.ConvoID != convoID {
				continue
			}
			data, _ := json.Marshal(event)
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Logger.Error("Failed to send WebSocket message", "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
