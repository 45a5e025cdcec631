package models

import (
	"encoding/json"
	"time"
)

// MessageRecord is the persisted form of a Message. Transient flags
// (isLoading, isStreaming) are never written; tree placement travels inside
// the metadata blob.
type MessageRecord struct {
	ID             string `gorm:"primaryKey"`
	ConversationID string `gorm:"index"`
	Content        string
	IsByUser       bool
	Bookmarked     bool
	Metadata       []byte `gorm:"type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type messageMetadata struct {
	Ancestors []string `json:"ancestors,omitempty"`
	IsRoot    bool     `json:"isRoot,omitempty"`
	IsLeaf    bool     `json:"isLeaf,omitempty"`
	Meta      any      `json:"meta,omitempty"`
}

func NewMessageRecord(m *Message) *MessageRecord {
	metadata, _ := json.Marshal(messageMetadata{
		Ancestors: m.Ancestors,
		IsRoot:    m.IsRoot,
		IsLeaf:    m.IsLeaf,
		Meta:      m.Meta,
	})
	return &MessageRecord{
		ID:             m.ID,
		ConversationID: m.ConvoID,
		Content:        m.Content,
		IsByUser:       m.IsUser,
		Bookmarked:     m.Bookmarked,
		Metadata:       metadata,
	}
}

func (r *MessageRecord) ToMessage() *Message {
	var metadata messageMetadata
	if len(r.Metadata) > 0 {
		_ = json.Unmarshal(r.Metadata, &metadata)
	}
	return &Message{
		ID:         r.ID,
		ConvoID:    r.ConversationID,
		Content:    r.Content,
		IsUser:     r.IsByUser,
		Bookmarked: r.Bookmarked,
		Ancestors:  metadata.Ancestors,
		IsRoot:     metadata.IsRoot,
		IsLeaf:     metadata.IsLeaf,
		Meta:       metadata.Meta,
	}
}

type ConversationRecord struct {
	ID             string `gorm:"primaryKey"`
	Name           string
	SessionID      int64
	DBSummaryID    int64
	DBSummaryJobID string
	DBName         string
	Suggestions    []byte `gorm:"type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewConversationRecord(c *Conversation) *ConversationRecord {
	var suggestions []byte
	if len(c.Suggestions) > 0 {
		suggestions, _ = json.Marshal(c.Suggestions)
	}
	return &ConversationRecord{
		ID:             c.ID,
		Name:           c.Name,
		SessionID:      c.SessionID,
		DBSummaryID:    c.DBSummaryID,
		DBSummaryJobID: c.DBSummaryJobID,
		DBName:         c.DBName,
		Suggestions:    suggestions,
	}
}

func (r *ConversationRecord) ToConversation() *Conversation {
	var suggestions []string
	if len(r.Suggestions) > 0 {
		_ = json.Unmarshal(r.Suggestions, &suggestions)
	}
	return &Conversation{
		ID:             r.ID,
		Name:           r.Name,
		SessionID:      r.SessionID,
		DBSummaryID:    r.DBSummaryID,
		DBSummaryJobID: r.DBSummaryJobID,
		DBName:         r.DBName,
		Suggestions:    suggestions,
		Messages:       []string{},
		CreatedTs:      r.CreatedAt.UnixMilli(),
		UpdatedTs:      r.UpdatedAt.UnixMilli(),
	}
}

// ShareSnapshot is the JSON document written to object storage for a public
// link.
type ShareSnapshot struct {
	ConvoID   string     `json:"convo_id"`
	Name      string     `json:"name"`
	Messages  []*Message `json:"messages"`
	CreatedAt time.Time  `json:"created_at"`
}
