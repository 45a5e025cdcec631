package models

// Content markers understood by the rendering layer. A message carrying one of
// these renders from its meta payload instead of the raw content string.
const (
	QuestionBreakdownContent     = "<QuestionBreakdown />"
	DatabaseUnderstandingContent = "<DatabaseUnderstanding />"
	DatasetSwitchedContent       = "<DatasetSwitched />"
)

type Message struct {
	ID          string   `json:"id"`
	ConvoID     string   `json:"convoId"`
	Content     string   `json:"content"`
	IsLoading   bool     `json:"isLoading,omitempty"`
	IsStreaming bool     `json:"isStreaming,omitempty"`
	IsUser      bool     `json:"isUser"`
	Ancestors   []string `json:"ancestors,omitempty"`
	IsLeaf      bool     `json:"isLeaf,omitempty"`
	IsRoot      bool     `json:"isRoot,omitempty"`
	Bookmarked  bool     `json:"bookmarked"`
	Meta        any      `json:"meta,omitempty"`
}

// MessageFlowNode is the canvas-mode projection. It holds message ids only;
// message content stays in the store.
type MessageFlowNode struct {
	ID       string             `json:"id"`
	Children []*MessageFlowNode `json:"children"`
}
