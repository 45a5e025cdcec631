package services

import (
	"context"
	"fmt"
	"go_datachat_backend/models"
	"sync"
	"time"
)

// SessionRegistry holds per-conversation metadata and transient flags. It owns
// the linear message-id projection; message content lives in the MessageStore.
type SessionRegistry struct {
	mu    sync.RWMutex
	byID  map[string]*models.Conversation
	order []string // most recently touched first
	runs  map[string]*convoRun
}

type convoRun struct {
	cancel context.CancelFunc
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byID: make(map[string]*models.Conversation),
		runs: make(map[string]*convoRun),
	}
}

// Save registers or replaces a conversation and moves it to the head of the
// recency list.
func (r *SessionRegistry) Save(convo *models.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := cloneConversation(convo)
	if copied.Messages == nil {
		copied.Messages = []string{}
	}
	r.byID[copied.ID] = copied
	r.touchLocked(copied.ID)
}

func (r *SessionRegistry) ByID(id string) (*models.Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	convo, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return cloneConversation(convo), true
}

func (r *SessionRegistry) List() []*models.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Conversation, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneConversation(r.byID[id]))
	}
	return out
}

// Delete removes a conversation. The last remaining conversation cannot be
// deleted.
func (r *SessionRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("conversation %s not found", id)
	}
	if len(r.byID) == 1 {
		return fmt.Errorf("cannot delete the last conversation")
	}
	if run, ok := r.runs[id]; ok {
		run.cancel()
		delete(r.runs, id)
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *SessionRegistry) Rename(id string, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if convo, ok := r.byID[id]; ok {
		convo.Name = name
	}
}

// AppendMessage records a message id on the linear projection and bumps the
// conversation's recency.
func (r *SessionRegistry) AppendMessage(convoID string, messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	convo, ok := r.byID[convoID]
	if !ok {
		return
	}
	convo.Messages = append(convo.Messages, messageID)
	convo.UpdatedTs = time.Now().UnixMilli()
	r.touchLocked(convoID)
}

func (r *SessionRegistry) RemoveMessage(convoID string, messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	convo, ok := r.byID[convoID]
	if !ok {
		return
	}
	for i, id := range convo.Messages {
		if id == messageID {
			convo.Messages = append(convo.Messages[:i], convo.Messages[i+1:]...)
			break
		}
	}
}

func (r *SessionRegistry) ReplaceMessages(convoID string, messageIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if convo, ok := r.byID[convoID]; ok {
		convo.Messages = append([]string{}, messageIDs...)
	}
}

// LatestMessageID returns the id at the tail of the linear projection.
func (r *SessionRegistry) LatestMessageID(convoID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	convo, ok := r.byID[convoID]
	if !ok || len(convo.Messages) == 0 {
		return "", false
	}
	return convo.Messages[len(convo.Messages)-1], true
}

func (r *SessionRegistry) SetThinking(convoID string, thinking bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if convo, ok := r.byID[convoID]; ok {
		convo.Thinking = thinking
	}
}

func (r *SessionRegistry) SetLoadingMessages(convoID string, loading bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if convo, ok := r.byID[convoID]; ok {
		convo.LoadingMessages = loading
	}
}

func (r *SessionRegistry) MarkMessagesLoaded(convoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if convo, ok := r.byID[convoID]; ok {
		convo.MessagesLoaded = true
		convo.LoadingMessages = false
	}
}

func (r *SessionRegistry) SetSessionID(convoID string, sessionID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if convo, ok := r.byID[convoID]; ok {
		convo.SessionID = sessionID
	}
}

// BindSummary attaches a database summary to the conversation. Conversations
// still carrying the default name take the database name.
func (r *SessionRegistry) BindSummary(convoID string, summaryID int64, jobID string, dbName string, creating bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	convo, ok := r.byID[convoID]
	if !ok {
		return
	}
	convo.Creating = creating
	convo.DBSummaryID = summaryID
	convo.DBSummaryJobID = jobID
	if dbName != "" {
		convo.DBName = dbName
		if convo.Name == models.DefaultConvoName {
			convo.Name = dbName
		}
	}
}

func (r *SessionRegistry) SetSuggestions(convoID string, suggestions []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if convo, ok := r.byID[convoID]; ok {
		convo.Suggestions = append([]string(nil), suggestions...)
	}
}

// BeginRun hands out a cancellable context for an orchestrator run, cancelling
// any run still in flight for the same conversation. The returned stop func
// releases this run only; a newer run that already replaced it is untouched.
func (r *SessionRegistry) BeginRun(convoID string) (context.Context, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.runs[convoID]; ok {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	run := &convoRun{cancel: cancel}
	r.runs[convoID] = run

	stop := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		run.cancel()
		if r.runs[convoID] == run {
			delete(r.runs, convoID)
		}
	}
	return ctx, stop
}

func (r *SessionRegistry) touchLocked(convoID string) {
	for i, id := range r.order {
		if id == convoID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.order = append([]string{convoID}, r.order...)
}

func cloneConversation(convo *models.Conversation) *models.Conversation {
	copied := *convo
	copied.Messages = append([]string(nil), convo.Messages...)
	copied.Suggestions = append([]string(nil), convo.Suggestions...)
	return &copied
}
