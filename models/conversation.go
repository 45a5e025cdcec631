package models

const DefaultConvoName = "Untitled"

type Conversation struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	SessionID       int64    `json:"sessionId,omitempty"`
	DBSummaryID     int64    `json:"dbSummaryId,omitempty"`
	DBSummaryJobID  string   `json:"dbSummaryJobId,omitempty"`
	DBName          string   `json:"dbName,omitempty"`
	Thinking        bool     `json:"thinking"`
	Creating        bool     `json:"creating"`
	LoadingMessages bool     `json:"loadingMessages"`
	MessagesLoaded  bool     `json:"messagesLoaded"`
	Messages        []string `json:"messages"`
	Suggestions     []string `json:"suggestions,omitempty"`
	CreatedTs       int64    `json:"createdTs"`
	UpdatedTs       int64    `json:"updatedTs"`
}
