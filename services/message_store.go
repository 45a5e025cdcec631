package services

import (
	"go_datachat_backend/models"
	"sync"
)

// MessageStore owns every message record, keyed by id, plus the derived
// per-conversation flow forest for canvas mode. The flow holds ids only; the
// raw map is the single source of truth for content.
type MessageStore struct {
	mu   sync.RWMutex
	raw  map[string]*models.Message
	flow map[string][]*models.MessageFlowNode
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		raw:  make(map[string]*models.Message),
		flow: make(map[string][]*models.MessageFlowNode),
	}
}

// Insert stores the message and folds it into the conversation's flow forest.
// A user message opens a new top-level branch; any other message with
// ancestors is attached under the node matched by its last ancestor. If the
// ancestor chain cannot be resolved the message is kept in the store but not
// attached; the flow is a rendering aid, not the source of truth.
func (s *MessageStore) Insert(msg *models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := cloneMessage(msg)
	s.raw[copied.ID] = copied

	if msg.IsUser {
		s.flow[msg.ConvoID] = append(s.flow[msg.ConvoID], &models.MessageFlowNode{ID: msg.ID})
		return
	}
	if len(msg.Ancestors) == 0 {
		return
	}

	var branch *models.MessageFlowNode
	for _, node := range s.flow[msg.ConvoID] {
		if node.ID == msg.Ancestors[0] {
			branch = node
			break
		}
	}
	for _, ancestor := range msg.Ancestors[1:] {
		if branch == nil {
			break
		}
		var next *models.MessageFlowNode
		for _, child := range branch.Children {
			if child.ID == ancestor {
				next = child
				break
			}
		}
		branch = next
	}
	if branch == nil {
		return
	}
	branch.Children = append(branch.Children, &models.MessageFlowNode{ID: msg.ID})
}

// Edit upserts by id, replacing the whole record. No cross-field validation;
// callers are responsible for coherent flag combinations.
func (s *MessageStore) Edit(msg *models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[msg.ID] = cloneMessage(msg)
}

// Remove deletes by id. The flow node, if any, stays behind.
func (s *MessageStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.raw, id)
}

func (s *MessageStore) ByID(id string) (*models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.raw[id]
	if !ok {
		return nil, false
	}
	return cloneMessage(msg), true
}

func (s *MessageStore) SetBookmark(id string, bookmarked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.raw[id]
	if !ok {
		return false
	}
	msg.Bookmarked = bookmarked
	return true
}

// Flow returns a deep copy of the conversation's flow forest.
func (s *MessageStore) Flow(convoID string) []*models.MessageFlowNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := s.flow[convoID]
	out := make([]*models.MessageFlowNode, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, cloneFlowNode(node))
	}
	return out
}

// RemoveConversation drops every record and the flow of one conversation.
func (s *MessageStore) RemoveConversation(convoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, msg := range s.raw {
		if msg.ConvoID == convoID {
			delete(s.raw, id)
		}
	}
	delete(s.flow, convoID)
}

func cloneMessage(msg *models.Message) *models.Message {
	copied := *msg
	if msg.Ancestors != nil {
		copied.Ancestors = append([]string(nil), msg.Ancestors...)
	}
	return &copied
}

func cloneFlowNode(node *models.MessageFlowNode) *models.MessageFlowNode {
	copied := &models.MessageFlowNode{ID: node.ID}
	for _, child := range node.Children {
		copied.Children = append(copied.Children, cloneFlowNode(child))
	}
	return copied
}
