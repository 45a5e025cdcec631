package services

import (
	"context"
	"encoding/json"
	"go_datachat_backend/models"
	"go_datachat_backend/pkg/logging"
	"go_datachat_backend/platform/cache"
	"go_datachat_backend/utils"
	"time"
)

const SummaryNotReadyMessage = "Still exploring the database in order to provide better insights, please wait a moment."

const UnderstandDatabasePrompt = "Get a quick understanding of this dataset"

// LoadingFillers rotate onto a long-running understanding placeholder so the
// user sees the job is still alive. Cosmetic only.
var LoadingFillers = []string{
	"Please wait while we process your dataset. This may take a few moments.",
	"Still working on it. The first pass over a dataset can take several minutes to complete.",
	"Crunching the numbers. Grab a coffee, this one is taking a little longer than usual.",
	"Profiling tables and sampling rows. Large schemas take a while, thanks for your patience.",
	"Almost there. We are double-checking relationships between your tables.",
	"Still at it. Good insights take a moment to brew.",
}

// TaskOrchestrator drives the asynchronous flows that turn a user prompt or an
// understanding request into message-store mutations. Every public method
// swallows its own failure into a chat message; the UI must never be left
// thinking forever.
type TaskOrchestrator struct {
	chat             *ChatService
	registry         *SessionRegistry
	jobs             JobsClient
	suggestionsCache *cache.TypedCache[[]string]

	pollInterval   time.Duration
	fillerInterval time.Duration
	now            func() time.Time
}

func NewTaskOrchestrator(chat *ChatService, jobs JobsClient, suggestionsCache *cache.TypedCache[[]string], pollInterval time.Duration, fillerInterval time.Duration) *TaskOrchestrator {
	return &TaskOrchestrator{
		chat:             chat,
		registry:         chat.Registry(),
		jobs:             jobs,
		suggestionsCache: suggestionsCache,
		pollInterval:     pollInterval,
		fillerInterval:   fillerInterval,
		now:              time.Now,
	}
}

// SubmitPrompt converts one user prompt into a persisted message chain with
// the (possibly multi-part) answer. Blocking; callers run it on a goroutine
// with a context from SessionRegistry.BeginRun.
func (o *TaskOrchestrator) SubmitPrompt(ctx context.Context, convoID string, prompt string) {
	o.registry.SetThinking(convoID, true)
	defer o.registry.SetThinking(convoID, false)

	if err := o.runPrompt(ctx, convoID, prompt); err != nil {
		// unthreaded plain error message, per the propagation policy
		o.chat.InsertMessage(err.Error(), convoID, MessageOptions{})
	}
}

func (o *TaskOrchestrator) runPrompt(ctx context.Context, convoID string, prompt string) error {
	convo, ok := o.registry.ByID(convoID)
	if !ok {
		return nil
	}

	user := o.chat.InsertMessage(prompt, convoID, MessageOptions{IsUser: true})
	loader := o.chat.InsertMessage("", convoID, MessageOptions{
		IsLoading: true,
		Ancestors: []string{user.ID},
	})
	rootID := loader.ID

	sessionID := convo.SessionID
	if sessionID == 0 {
		summary, err := o.jobs.GetDataSummary(ctx, convoID)
		if err != nil {
			o.editRoot(convoID, rootID, user.ID, err.Error(), rootOptions{})
			return nil
		}
		if summary.Result.Status != models.JobStatusDone {
			text := summary.Msg
			if text == "" {
				text = SummaryNotReadyMessage
			}
			o.editRoot(convoID, rootID, user.ID, text, rootOptions{})
			return nil
		}

		session, err := o.jobs.CreateSession(ctx, convoID)
		if err != nil {
			o.editRoot(convoID, rootID, user.ID, "Create session failed, "+err.Error(), rootOptions{})
			return nil
		}
		sessionID = session.SessionID
		o.registry.SetSessionID(convoID, sessionID)
		o.chat.PersistConversation(ctx, convoID)
	}

	data, err := o.jobs.BreakdownQuestion(ctx, prompt, sessionID, convoID)
	if err != nil {
		o.editRoot(convoID, rootID, user.ID, err.Error(), rootOptions{isRoot: true})
		return nil
	}
	if data.Code != 200 {
		o.editRoot(convoID, rootID, user.ID, data.Msg, rootOptions{isRoot: true})
		return nil
	}

	// task id -> message id, and task id -> message-id chain root..self,
	// seeded with the synthetic root task "0"
	assigned := map[string]string{"0": rootID}
	chains := map[string][]string{"0": {rootID}}

	poller := NewJobPoller(o.jobs, data.Result.JobID, convoID, o.pollInterval)
	for {
		obs, ok := poller.Next(ctx)
		if !ok {
			break
		}
		if obs.Err != nil {
			o.editRoot(convoID, rootID, user.ID, obs.Err.Error(), rootOptions{isRoot: true})
			break
		}

		detail := obs.Detail
		if detail.Code != 200 {
			o.editRoot(convoID, rootID, user.ID, detail.Msg, rootOptions{isRoot: true})
			break
		}

		answer, isBreakdown := models.DecodeBreakdownAnswer(detail.Result.Result)
		var meta any
		if isBreakdown {
			meta = answer
		} else if len(detail.Result.Result) > 0 {
			meta = json.RawMessage(detail.Result.Result)
		}

		switch detail.Result.Status {
		case models.JobStatusRunning:
			o.editRoot(convoID, rootID, user.ID, models.QuestionBreakdownContent, rootOptions{
				isRoot: true, isStreaming: true, meta: meta,
			})
		case models.JobStatusFailed:
			reason := detail.Result.Reason
			if reason == "" {
				reason = "Unknown reason"
			}
			o.editRoot(convoID, rootID, user.ID, reason, rootOptions{isRoot: true, meta: meta})
		case models.JobStatusDone:
			o.editRoot(convoID, rootID, user.ID, models.QuestionBreakdownContent, rootOptions{
				isRoot: true, meta: meta,
			})
		default:
			// "init": keep showing the loader
			continue
		}

		if !isBreakdown {
			continue
		}
		for _, sub := range answer.SubTasks {
			if assigned[sub.TaskID] != "" {
				// idempotent: one message per sub-task
				continue
			}
			if sub.Status != models.JobStatusDone {
				continue
			}
			parentChain, ok := chains[utils.ParentTaskID(sub.TaskID)]
			if !ok {
				// parent not materialized yet; retried on the next observation
				continue
			}
			ancestors := append([]string{user.ID}, parentChain...)
			leaf := o.chat.InsertMessage(models.QuestionBreakdownContent, convoID, MessageOptions{
				Meta:      sub,
				IsLeaf:    true,
				Ancestors: ancestors,
			})
			assigned[sub.TaskID] = leaf.ID
			chains[sub.TaskID] = append(append([]string(nil), parentChain...), leaf.ID)
		}
	}
	return nil
}

type rootOptions struct {
	isRoot      bool
	isStreaming bool
	meta        any
}

// editRoot replaces the root answer message in place. The loader placeholder
// always exists, so this is an edit, never an insert.
func (o *TaskOrchestrator) editRoot(convoID string, rootID string, userID string, content string, opts rootOptions) {
	o.chat.EditMessage(&models.Message{
		ID:          rootID,
		ConvoID:     convoID,
		Content:     content,
		IsStreaming: opts.isStreaming,
		IsRoot:      opts.isRoot,
		Ancestors:   []string{userID},
		Meta:        opts.meta,
	})
}

// UnderstandDatabase runs the single-result summary job, rotating filler text
// onto the placeholder while the job takes its time.
func (o *TaskOrchestrator) UnderstandDatabase(ctx context.Context, convoID string, message string, refresh bool) {
	if message == "" {
		message = UnderstandDatabasePrompt
	}
	if err := o.runUnderstand(ctx, convoID, message, refresh); err != nil {
		o.chat.InsertMessage(err.Error(), convoID, MessageOptions{})
	}
}

func (o *TaskOrchestrator) runUnderstand(ctx context.Context, convoID string, message string, refresh bool) error {
	lastCheck := o.now()
	fillerIndex := 0

	user := o.chat.InsertMessage(message, convoID, MessageOptions{IsUser: true})
	loader := o.chat.InsertMessage("", convoID, MessageOptions{
		IsLoading: true,
		Ancestors: []string{user.ID},
	})

	if refresh {
		data, err := o.jobs.RefreshDataSummary(ctx, convoID)
		if err != nil {
			return err
		}
		o.registry.BindSummary(convoID, data.Result.DataSummaryID, data.Result.JobID, "", false)
		o.chat.PersistConversation(ctx, convoID)
	}

	convo, ok := o.registry.ByID(convoID)
	if !ok {
		return nil
	}
	if convo.DBSummaryJobID == "" {
		o.editLoader(loader, "No database summary job is bound to this conversation yet.")
		return nil
	}

	poller := NewJobPoller(o.jobs, convo.DBSummaryJobID, convoID, o.pollInterval)
	for {
		obs, ok := poller.Next(ctx)
		if !ok {
			break
		}
		if obs.Err != nil {
			o.editLoader(loader, obs.Err.Error())
			return nil
		}

		if o.now().Sub(lastCheck) > o.fillerInterval {
			lastCheck = o.now()
			if last := o.chat.LatestMessage(convoID); last != nil && last.IsLoading {
				last.Content = LoadingFillers[fillerIndex]
				o.chat.EditMessage(last)
				fillerIndex = (fillerIndex + 1) % len(LoadingFillers)
			}
		}

		switch obs.Detail.Result.Status {
		case models.JobStatusFailed:
			reason := obs.Detail.Result.Reason
			if reason == "" {
				reason = "Unknown reason"
			}
			o.editLoader(loader, reason)
		case models.JobStatusDone:
			var understanding models.DatabaseUnderstanding
			var meta any
			if err := json.Unmarshal(obs.Detail.Result.Result, &understanding); err == nil {
				meta = &understanding
			} else if len(obs.Detail.Result.Result) > 0 {
				meta = json.RawMessage(obs.Detail.Result.Result)
			}
			o.chat.EditMessage(&models.Message{
				ID:        loader.ID,
				ConvoID:   loader.ConvoID,
				Content:   models.DatabaseUnderstandingContent,
				Ancestors: loader.Ancestors,
				Meta:      meta,
			})
			o.FetchSuggestions(ctx, convoID)
		}
	}
	return nil
}

func (o *TaskOrchestrator) editLoader(loader *models.Message, content string) {
	o.chat.EditMessage(&models.Message{
		ID:        loader.ID,
		ConvoID:   loader.ConvoID,
		Content:   content,
		Ancestors: loader.Ancestors,
	})
}

// FetchSuggestions asks for follow-up questions after a summary completes.
// Whatever path is taken, the latest message's streaming flag is cleared
// exactly once.
func (o *TaskOrchestrator) FetchSuggestions(ctx context.Context, convoID string) {
	last := o.chat.LatestMessage(convoID)
	if last == nil {
		return
	}

	streaming := cloneMessage(last)
	streaming.IsStreaming = true
	o.chat.EditMessage(streaming)

	finished := false
	// fresh marks suggestions obtained from the remote service; cached hits
	// must not be re-saved or re-cached
	finish := func(suggestions []string, fresh bool) {
		if finished {
			return
		}
		finished = true

		final := cloneMessage(last)
		final.IsStreaming = false
		o.chat.EditMessage(final)

		o.registry.SetSuggestions(convoID, suggestions)
		o.chat.PersistConversation(ctx, convoID)

		if !fresh || len(suggestions) == 0 {
			return
		}
		if o.suggestionsCache != nil {
			if err := o.suggestionsCache.Set(suggestionsCacheKey(convoID), suggestions, time.Hour); err != nil {
				logging.Logger.Error("fail cache suggestions", "error", err)
			}
		}
		if err := o.jobs.SaveSuggestions(ctx, convoID, suggestions); err != nil {
			logging.Logger.Error("fail SaveSuggestions", "error", err, "convoID", convoID)
		}
	}

	if o.suggestionsCache != nil {
		if cached, ok, err := o.suggestionsCache.Get(suggestionsCacheKey(convoID)); err == nil && ok && len(cached) > 0 {
			finish(cached, false)
			return
		}
	}

	data, err := o.jobs.GetSuggestedQuestions(ctx, convoID)
	if err != nil {
		finish(nil, false)
		return
	}
	if data.Result.JobID == "" {
		finish(data.Result.Suggestions, true)
		return
	}

	poller := NewJobPoller(o.jobs, data.Result.JobID, convoID, o.pollInterval)
	for {
		obs, ok := poller.Next(ctx)
		if !ok {
			break
		}
		if obs.Err != nil {
			finish(nil, false)
			return
		}
		switch obs.Detail.Result.Status {
		case models.JobStatusDone:
			if suggestions, ok := models.DecodeSuggestions(obs.Detail.Result.Result); ok {
				finish(suggestions, true)
			} else {
				finish(nil, false)
			}
		case models.JobStatusFailed:
			finish(nil, false)
		}
	}
	finish(nil, false)
}

func suggestionsCacheKey(convoID string) string {
	return "suggestions:" + convoID
}
