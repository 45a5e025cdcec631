package models

import "time"

const (
	MessageEventInserted = "message_inserted"
	MessageEventEdited   = "message_edited"
	MessageEventRemoved  = "message_removed"
)

// MessageEvent notifies the rendering layer about a store mutation.
type MessageEvent struct {
	Type      string    `json:"type"`
	ConvoID   string    `json:"convo_id"`
	MessageID string    `json:"message_id"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
