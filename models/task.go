package models

import "encoding/json"

// Job statuses reported by the remote analytics service.
const (
	JobStatusInit    = "init"
	JobStatusRunning = "running"
	JobStatusFailed  = "failed"
	JobStatusDone    = "done"
)

const (
	AnswerTypeBreakdown     = "breakdown"
	AnswerTypeDataRetrieval = "data_retrieval"
)

// JobDetail is one status snapshot of a remote job.
type JobDetail struct {
	Code   int       `json:"code"`
	Msg    string    `json:"msg,omitempty"`
	Result JobResult `json:"result"`
}

type JobResult struct {
	Status string          `json:"status"`
	Reason string          `json:"reason,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Terminal reports whether polling must stop after this snapshot.
func (r JobResult) Terminal() bool {
	return r.Status == JobStatusDone || r.Status == JobStatusFailed
}

type BreakdownResponse struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg,omitempty"`
	Result struct {
		JobID string `json:"job_id"`
	} `json:"result"`
}

type DataSummaryResponse struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg,omitempty"`
	Result struct {
		Status string `json:"status"` // "inited" until the first summary job finishes
	} `json:"result"`
}

type RefreshSummaryResponse struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg,omitempty"`
	Result struct {
		DataSummaryID int64  `json:"data_summary_id"`
		JobID         string `json:"job_id"`
	} `json:"result"`
}

type CreateSessionResponse struct {
	SessionID int64 `json:"sessionId"`
}

// SuggestionsResponse either carries the suggestions directly or a job id to
// poll for them.
type SuggestionsResponse struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg,omitempty"`
	Result struct {
		Suggestions []string `json:"suggestions,omitempty"`
		JobID       string   `json:"job_id,omitempty"`
	} `json:"result"`
}

type Assumption struct {
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
}

type AnswerColumn struct {
	Col string `json:"col"`
}

type AnswerData struct {
	Columns []AnswerColumn `json:"columns"`
	Rows    [][]any        `json:"rows"`
}

type ChartOptions struct {
	ChartName   string `json:"chart_name,omitempty"`
	Title       string `json:"title,omitempty"`
	OptionX     string `json:"option_x,omitempty"`
	OptionY     string `json:"option_y,omitempty"`
	PivotColumn string `json:"pivot_column,omitempty"`
}

// ResolvedAnswer is a single resolved sub-task within a breakdown.
type ResolvedAnswer struct {
	TaskID        string        `json:"task_id"`
	Type          string        `json:"type"`
	Status        string        `json:"status"`
	ClarifiedTask string        `json:"clarified_task,omitempty"`
	Description   string        `json:"description,omitempty"`
	SQL           string        `json:"sql,omitempty"`
	SQLError      string        `json:"sql_error,omitempty"`
	ChartOptions  *ChartOptions `json:"chart_options,omitempty"`
	Data          *AnswerData   `json:"data,omitempty"`
	Assumptions   []Assumption  `json:"assumptions,omitempty"`
}

// BreakdownAnswer is the root analytical task decomposed into sub-tasks.
type BreakdownAnswer struct {
	TaskID        string           `json:"task_id"`
	Type          string           `json:"type"`
	Status        string           `json:"status"`
	ClarifiedTask string           `json:"clarified_task,omitempty"`
	Description   string           `json:"description,omitempty"`
	SubTasks      []ResolvedAnswer `json:"sub_tasks"`
	Assumptions   []Assumption     `json:"assumptions,omitempty"`
}

type DatabaseUnderstanding struct {
	ClusterID     string   `json:"cluster_id,omitempty"`
	DataSummaryID string   `json:"data_summary_id,omitempty"`
	Database      string   `json:"database,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Status        string   `json:"status,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Description   struct {
		System string `json:"system,omitempty"`
		User   string `json:"user,omitempty"`
	} `json:"description,omitempty"`
}

// DecodeBreakdownAnswer decodes raw only when it carries a breakdown-type
// answer, discriminated by the type field.
func DecodeBreakdownAnswer(raw json.RawMessage) (*BreakdownAnswer, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Type != AnswerTypeBreakdown {
		return nil, false
	}
	var answer BreakdownAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, false
	}
	return &answer, true
}

// DecodeSuggestions validates raw as a plain array of strings.
func DecodeSuggestions(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var suggestions []string
	if err := json.Unmarshal(raw, &suggestions); err != nil {
		return nil, false
	}
	return suggestions, true
}
