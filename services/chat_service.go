package services

import (
	"context"
	"fmt"
	"go_datachat_backend/models"
	"go_datachat_backend/pkg/logging"
	"go_datachat_backend/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// MessageOptions mirrors the optional fields of a new message.
type MessageOptions struct {
	ID          string
	IsLoading   bool
	IsStreaming bool
	IsUser      bool
	IsRoot      bool
	IsLeaf      bool
	Ancestors   []string
	Meta        any
}

// MessageSubscriber reacts to store mutations. Subscribers are wired
// explicitly at bootstrap (persistence write-behind, pubsub fan-out) so side
// effects stay visible instead of globally registered.
type MessageSubscriber func(event models.MessageEvent)

// ChatService is the mutation surface over the MessageStore and the
// SessionRegistry: every message insert/edit/removal goes through here so the
// linear projection, the flow tree and the subscribers stay in step.
type ChatService struct {
	store       *MessageStore
	registry    *SessionRegistry
	convoRepo   repository.ConversationRepository
	msgRepo     repository.MessageRepository
	subscribers []MessageSubscriber
	loads       singleflight.Group
}

func NewChatService(store *MessageStore, registry *SessionRegistry, convoRepo repository.ConversationRepository, msgRepo repository.MessageRepository) *ChatService {
	return &ChatService{
		store:     store,
		registry:  registry,
		convoRepo: convoRepo,
		msgRepo:   msgRepo,
	}
}

// Subscribe registers a subscriber. Bootstrap-time only: the slice is not
// locked, so registering after the service starts handling traffic races
// with notify.
func (s *ChatService) Subscribe(sub MessageSubscriber) {
	s.subscribers = append(s.subscribers, sub)
}

func (s *ChatService) Registry() *SessionRegistry {
	return s.registry
}

func (s *ChatService) notify(eventType string, msg *models.Message) {
	event := models.MessageEvent{
		Type:      eventType,
		ConvoID:   msg.ConvoID,
		MessageID: msg.ID,
		Message:   msg,
	}
	for _, sub := range s.subscribers {
		sub(event)
	}
}

// InsertMessage creates a message record, appends it to the conversation's
// linear projection and folds it into the flow tree.
func (s *ChatService) InsertMessage(content string, convoID string, opts MessageOptions) *models.Message {
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	msg := &models.Message{
		ID:          id,
		ConvoID:     convoID,
		Content:     "\n" + strings.TrimSpace(content) + "\n",
		IsLoading:   opts.IsLoading,
		IsStreaming: opts.IsStreaming,
		IsUser:      opts.IsUser,
		IsRoot:      opts.IsRoot,
		IsLeaf:      opts.IsLeaf,
		Ancestors:   append([]string(nil), opts.Ancestors...),
		Meta:        opts.Meta,
	}
	s.store.Insert(msg)
	s.registry.AppendMessage(convoID, msg.ID)
	s.notify(models.MessageEventInserted, msg)
	return cloneMessage(msg)
}

// EditMessage upserts by id, replacing the whole record.
func (s *ChatService) EditMessage(msg *models.Message) {
	s.store.Edit(msg)
	s.notify(models.MessageEventEdited, cloneMessage(msg))
}

func (s *ChatService) RemoveMessage(convoID string, messageID string) {
	s.store.Remove(messageID)
	s.registry.RemoveMessage(convoID, messageID)
	s.notify(models.MessageEventRemoved, &models.Message{ID: messageID, ConvoID: convoID})
}

func (s *ChatService) MessageByID(id string) (*models.Message, bool) {
	return s.store.ByID(id)
}

func (s *ChatService) LatestMessage(convoID string) *models.Message {
	id, ok := s.registry.LatestMessageID(convoID)
	if !ok {
		return nil
	}
	msg, ok := s.store.ByID(id)
	if !ok {
		return nil
	}
	return msg
}

func (s *ChatService) SetBookmark(ctx context.Context, messageID string, bookmarked bool) error {
	if !s.store.SetBookmark(messageID, bookmarked) {
		return fmt.Errorf("message %s not found", messageID)
	}
	go func() {
		if err := s.msgRepo.SetBookmark(context.Background(), messageID, bookmarked); err != nil {
			logging.Logger.Error("fail SetBookmark persist", "error", err, "messageID", messageID)
		}
	}()
	return nil
}

// Messages returns the linear projection, lazily hydrating persisted messages
// on first access. Concurrent first reads share one repository query.
func (s *ChatService) Messages(ctx context.Context, convoID string) ([]*models.Message, error) {
	if err := s.ensureLoaded(ctx, convoID); err != nil {
		return nil, err
	}
	convo, ok := s.registry.ByID(convoID)
	if !ok {
		return nil, fmt.Errorf("conversation %s not found", convoID)
	}
	out := make([]*models.Message, 0, len(convo.Messages))
	for _, id := range convo.Messages {
		if msg, ok := s.store.ByID(id); ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

// Flow returns the canvas projection of a conversation.
func (s *ChatService) Flow(ctx context.Context, convoID string) ([]*models.MessageFlowNode, error) {
	if err := s.ensureLoaded(ctx, convoID); err != nil {
		return nil, err
	}
	return s.store.Flow(convoID), nil
}

func (s *ChatService) ensureLoaded(ctx context.Context, convoID string) error {
	convo, ok := s.registry.ByID(convoID)
	if !ok {
		return fmt.Errorf("conversation %s not found", convoID)
	}
	// nothing persisted before a database summary is bound
	if convo.MessagesLoaded || convo.DBSummaryID == 0 {
		return nil
	}

	_, err, _ := s.loads.Do(convoID, func() (interface{}, error) {
		s.registry.SetLoadingMessages(convoID, true)
		records, err := s.msgRepo.ListByConversation(ctx, convoID)
		if err != nil {
			s.registry.SetLoadingMessages(convoID, false)
			return nil, err
		}
		ids := make([]string, 0, len(records))
		for _, record := range records {
			msg := record.ToMessage()
			// fold without notifying: these records are already persisted
			s.store.Insert(msg)
			ids = append(ids, msg.ID)
		}
		s.registry.ReplaceMessages(convoID, ids)
		s.registry.MarkMessagesLoaded(convoID)
		return nil, nil
	})
	return err
}

// CreateConversation persists a new conversation and registers it.
func (s *ChatService) CreateConversation(ctx context.Context, name string) (*models.Conversation, error) {
	if name == "" {
		name = models.DefaultConvoName
	}
	convo := &models.Conversation{
		ID:        uuid.New().String(),
		Name:      name,
		Messages:  []string{},
		CreatedTs: time.Now().UnixMilli(),
		UpdatedTs: time.Now().UnixMilli(),
	}
	if err := s.convoRepo.Create(ctx, models.NewConversationRecord(convo)); err != nil {
		logging.Logger.Error("fail CreateConversation", "error", err)
		return nil, err
	}
	s.registry.Save(convo)
	return convo, nil
}

func (s *ChatService) DeleteConversation(ctx context.Context, convoID string) error {
	if err := s.registry.Delete(convoID); err != nil {
		return err
	}
	s.store.RemoveConversation(convoID)
	if err := s.convoRepo.Delete(ctx, convoID); err != nil {
		logging.Logger.Error("fail DeleteConversation persist", "error", err, "convoID", convoID)
		return err
	}
	return nil
}

func (s *ChatService) RenameConversation(ctx context.Context, convoID string, name string) error {
	s.registry.Rename(convoID, name)
	if err := s.convoRepo.Rename(ctx, convoID, name); err != nil {
		logging.Logger.Error("fail RenameConversation persist", "error", err, "convoID", convoID)
		return err
	}
	return nil
}

// BindDatabase attaches a summarized database to a conversation. Rebinding to
// a different database drops a dataset-switched notice into the chat so the
// transcript records where the context changed.
func (s *ChatService) BindDatabase(ctx context.Context, convoID string, summaryID int64, jobID string, dbName string) error {
	convo, ok := s.registry.ByID(convoID)
	if !ok {
		return fmt.Errorf("conversation %s not found", convoID)
	}
	switched := dbName != "" && convo.DBName != "" && convo.DBName != dbName
	s.registry.BindSummary(convoID, summaryID, jobID, dbName, false)
	if switched {
		s.InsertMessage(models.DatasetSwitchedContent, convoID, MessageOptions{})
	}
	s.PersistConversation(ctx, convoID)
	return nil
}

// PersistConversation writes the registry's view of a conversation through to
// the repository, best effort.
func (s *ChatService) PersistConversation(ctx context.Context, convoID string) {
	convo, ok := s.registry.ByID(convoID)
	if !ok {
		return
	}
	if err := s.convoRepo.Update(ctx, models.NewConversationRecord(convo)); err != nil {
		logging.Logger.Error("fail PersistConversation", "error", err, "convoID", convoID)
	}
}

// LoadConversations hydrates the registry from the repository at startup.
func (s *ChatService) LoadConversations(ctx context.Context) error {
	records, err := s.convoRepo.List(ctx)
	if err != nil {
		return err
	}
	for i := len(records) - 1; i >= 0; i-- {
		s.registry.Save(records[i].ToConversation())
	}
	return nil
}
