package services

import (
	"context"
	"encoding/json"
	"errors"
	"go_datachat_backend/models"
	"go_datachat_backend/platform/cache"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveConvo(chat *ChatService, convo *models.Conversation) {
	chat.Registry().Save(convo)
}

// captureEdits records every edit event, keyed by message id.
func captureEdits(chat *ChatService) (func(string) []string, func() []string) {
	var mu sync.Mutex
	byID := make(map[string][]string)
	var all []string
	chat.Subscribe(func(event models.MessageEvent) {
		if event.Type != models.MessageEventEdited || event.Message == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		byID[event.MessageID] = append(byID[event.MessageID], event.Message.Content)
		all = append(all, event.Message.Content)
	})
	forID := func(id string) []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), byID[id]...)
	}
	every := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), all...)
	}
	return forID, every
}

func TestSubmitPromptBreakdownFlow(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1", Name: "sales", SessionID: 7})

	jobs := newFakeJobsClient(
		plainDetail(models.JobStatusRunning),
		breakdownDetail(models.JobStatusRunning, subTask("0-0", models.JobStatusDone), subTask("0-1", models.JobStatusRunning)),
		breakdownDetail(models.JobStatusDone, subTask("0-0", models.JobStatusDone), subTask("0-1", models.JobStatusDone)),
	)
	o := newTestOrchestrator(chat, jobs)

	o.SubmitPrompt(context.Background(), "c1", "show revenue by month")

	messages, err := chat.Messages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, messages, 4)

	user := messages[0]
	assert.True(t, user.IsUser)
	assert.Equal(t, "\nshow revenue by month\n", user.Content)

	root := messages[1]
	assert.True(t, root.IsRoot)
	assert.False(t, root.IsLoading)
	assert.False(t, root.IsStreaming)
	assert.Equal(t, models.QuestionBreakdownContent, root.Content)
	assert.Equal(t, []string{user.ID}, root.Ancestors)

	first := messages[2]
	assert.True(t, first.IsLeaf)
	assert.Equal(t, []string{user.ID, root.ID}, first.Ancestors)
	assert.Equal(t, "0-0", first.Meta.(models.ResolvedAnswer).TaskID)

	second := messages[3]
	assert.Equal(t, []string{user.ID, root.ID}, second.Ancestors)
	assert.Equal(t, "0-1", second.Meta.(models.ResolvedAnswer).TaskID)

	flow, err := chat.Flow(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, flow, 1)
	require.Len(t, flow[0].Children, 1)
	assert.Equal(t, root.ID, flow[0].Children[0].ID)
	assert.Len(t, flow[0].Children[0].Children, 2)

	convo, ok := chat.Registry().ByID("c1")
	require.True(t, ok)
	assert.False(t, convo.Thinking)
}

func TestSubmitPromptSummaryNotReady(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1"})

	jobs := newFakeJobsClient()
	jobs.summaryStatus = "inited"
	o := newTestOrchestrator(chat, jobs)

	o.SubmitPrompt(context.Background(), "c1", "how many orders")

	messages, err := chat.Messages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, SummaryNotReadyMessage, messages[1].Content)
	assert.False(t, messages[1].IsLoading)
	assert.Equal(t, 0, jobs.sessionCalls)
}

func TestSubmitPromptCreatesSessionOnce(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1"})

	jobs := newFakeJobsClient(breakdownDetail(models.JobStatusDone))
	jobs.sessionID = 9
	o := newTestOrchestrator(chat, jobs)

	o.SubmitPrompt(context.Background(), "c1", "first question")

	convo, ok := chat.Registry().ByID("c1")
	require.True(t, ok)
	assert.Equal(t, int64(9), convo.SessionID)
	assert.Equal(t, 1, jobs.sessionCalls)

	o.SubmitPrompt(context.Background(), "c1", "second question")
	assert.Equal(t, 1, jobs.sessionCalls)
}

func TestSubmitPromptSubTaskWaitsForParent(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1", SessionID: 7})

	// the nested sub-task resolves before its parent is reported done
	jobs := newFakeJobsClient(
		breakdownDetail(models.JobStatusRunning, subTask("0-1-0", models.JobStatusDone)),
		breakdownDetail(models.JobStatusRunning, subTask("0-1", models.JobStatusDone), subTask("0-1-0", models.JobStatusDone)),
		breakdownDetail(models.JobStatusDone, subTask("0-1", models.JobStatusDone), subTask("0-1-0", models.JobStatusDone)),
	)
	o := newTestOrchestrator(chat, jobs)

	o.SubmitPrompt(context.Background(), "c1", "multi step question")

	messages, err := chat.Messages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, messages, 4)

	user, root := messages[0], messages[1]
	parent := messages[2]
	nested := messages[3]
	assert.Equal(t, "0-1", parent.Meta.(models.ResolvedAnswer).TaskID)
	assert.Equal(t, "0-1-0", nested.Meta.(models.ResolvedAnswer).TaskID)
	assert.Equal(t, []string{user.ID, root.ID}, parent.Ancestors)
	assert.Equal(t, []string{user.ID, root.ID, parent.ID}, nested.Ancestors)
}

func TestSubmitPromptJobFailure(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1", SessionID: 7})

	jobs := newFakeJobsClient(
		plainDetail(models.JobStatusRunning),
		plainDetail(models.JobStatusRunning),
		&models.JobDetail{Code: 200, Result: models.JobResult{Status: models.JobStatusFailed}},
	)
	o := newTestOrchestrator(chat, jobs)

	o.SubmitPrompt(context.Background(), "c1", "bad question")

	// the failure reason must win over the earlier running placeholder
	messages, err := chat.Messages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Unknown reason", messages[1].Content)
	assert.False(t, messages[1].IsStreaming)
	assert.True(t, messages[1].IsRoot)
}

func TestSubmitPromptTransportErrorEndsPolling(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1", SessionID: 7})

	jobs := newFakeJobsClient(plainDetail(models.JobStatusRunning))
	jobs.queryErr = errors.New("connection reset")
	o := newTestOrchestrator(chat, jobs)

	o.SubmitPrompt(context.Background(), "c1", "question")

	messages, err := chat.Messages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "connection reset", messages[1].Content)
	assert.False(t, messages[1].IsStreaming)
}

func TestSubmitPromptInitStatusLeavesLoaderAlone(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1", SessionID: 7})
	forID, _ := captureEdits(chat)

	jobs := newFakeJobsClient(plainDetail(models.JobStatusInit), plainDetail(models.JobStatusDone))
	o := newTestOrchestrator(chat, jobs)

	o.SubmitPrompt(context.Background(), "c1", "question")

	messages, err := chat.Messages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	root := messages[1]
	assert.Equal(t, models.QuestionBreakdownContent, root.Content)
	// init must not touch the placeholder, so the only edit is the final one
	assert.Equal(t, []string{models.QuestionBreakdownContent}, forID(root.ID))
}

func TestSubmitPromptCancelled(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1", SessionID: 7})

	jobs := newFakeJobsClient(plainDetail(models.JobStatusRunning))
	o := NewTaskOrchestrator(chat, jobs, nil, 5*time.Millisecond, 10*time.Second)
	o.now = jobs.Now

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.SubmitPrompt(ctx, "c1", "endless question")
	}()

	require.Eventually(t, func() bool { return jobs.queryCount() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not stop after cancellation")
	}
	convo, ok := chat.Registry().ByID("c1")
	require.True(t, ok)
	assert.False(t, convo.Thinking)
}

func TestUnderstandDatabaseFillerRotation(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1", DBSummaryID: 5, DBSummaryJobID: "job-s", MessagesLoaded: true})
	_, allEdits := captureEdits(chat)

	details := make([]*models.JobDetail, 0, 35)
	for i := 0; i < 34; i++ {
		details = append(details, plainDetail(models.JobStatusRunning))
	}
	details = append(details, understandingDetail("orders database"))
	jobs := newFakeJobsClient(details...)
	jobs.suggestResp = &models.SuggestionsResponse{Code: 200}
	jobs.suggestResp.Result.Suggestions = []string{"top customers?", "monthly trend?"}
	o := newTestOrchestrator(chat, jobs)

	o.UnderstandDatabase(context.Background(), "c1", "", false)

	fillerSet := make(map[string]bool, len(LoadingFillers))
	for _, f := range LoadingFillers {
		fillerSet[f] = true
	}
	var fillers []string
	for _, content := range allEdits() {
		if fillerSet[content] {
			fillers = append(fillers, content)
		}
	}
	// one second per poll, one rotation per elapsed ten-second window
	require.Equal(t, []string{LoadingFillers[0], LoadingFillers[1], LoadingFillers[2]}, fillers)

	messages, err := chat.Messages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	user, answer := messages[0], messages[1]
	assert.Equal(t, "\n"+UnderstandDatabasePrompt+"\n", user.Content)
	assert.Equal(t, models.DatabaseUnderstandingContent, answer.Content)
	assert.False(t, answer.IsLoading)
	assert.False(t, answer.IsStreaming)
	require.IsType(t, &models.DatabaseUnderstanding{}, answer.Meta)
	assert.Equal(t, "orders database", answer.Meta.(*models.DatabaseUnderstanding).Summary)

	convo, ok := chat.Registry().ByID("c1")
	require.True(t, ok)
	assert.Equal(t, []string{"top customers?", "monthly trend?"}, convo.Suggestions)
	require.Len(t, jobs.saved, 1)
}

func TestUnderstandDatabaseRefreshBindsNewJob(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1", Name: models.DefaultConvoName, MessagesLoaded: true})

	jobs := newFakeJobsClient(understandingDetail("fresh summary"))
	jobs.refreshResp = &models.RefreshSummaryResponse{Code: 200}
	jobs.refreshResp.Result.DataSummaryID = 9
	jobs.refreshResp.Result.JobID = "job-r"
	o := newTestOrchestrator(chat, jobs)

	o.UnderstandDatabase(context.Background(), "c1", "look again", true)

	convo, ok := chat.Registry().ByID("c1")
	require.True(t, ok)
	assert.Equal(t, int64(9), convo.DBSummaryID)
	assert.Equal(t, "job-r", convo.DBSummaryJobID)
	assert.Equal(t, 1, jobs.refreshCalls)
}

func TestUnderstandDatabaseWithoutBoundJob(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1"})

	jobs := newFakeJobsClient()
	o := newTestOrchestrator(chat, jobs)

	o.UnderstandDatabase(context.Background(), "c1", "", false)

	messages, err := chat.Messages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.False(t, messages[1].IsLoading)
	assert.NotEmpty(t, messages[1].Content)
	assert.Equal(t, 0, jobs.queryCount())
}

func TestFetchSuggestionsViaJob(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1"})

	user := chat.InsertMessage("question", "c1", MessageOptions{IsUser: true})
	chat.InsertMessage(models.DatabaseUnderstandingContent, "c1", MessageOptions{Ancestors: []string{user.ID}})

	jobs := newFakeJobsClient(
		plainDetail(models.JobStatusRunning),
		&models.JobDetail{Code: 200, Result: models.JobResult{Status: models.JobStatusDone, Result: json.RawMessage(`["q one","q two"]`)}},
	)
	jobs.suggestResp = &models.SuggestionsResponse{Code: 200}
	jobs.suggestResp.Result.JobID = "job-q"
	o := newTestOrchestrator(chat, jobs)
	o.suggestionsCache = cache.NewTypedCache[[]string](newFakeCacheService())

	o.FetchSuggestions(context.Background(), "c1")

	convo, ok := chat.Registry().ByID("c1")
	require.True(t, ok)
	assert.Equal(t, []string{"q one", "q two"}, convo.Suggestions)
	require.Len(t, jobs.saved, 1)
	assert.Equal(t, []string{"q one", "q two"}, jobs.saved[0])

	cached, hit, err := o.suggestionsCache.Get("suggestions:c1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"q one", "q two"}, cached)

	last := chat.LatestMessage("c1")
	require.NotNil(t, last)
	assert.False(t, last.IsStreaming)
}

func TestFetchSuggestionsServedFromCache(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1"})
	chat.InsertMessage("answer", "c1", MessageOptions{})

	jobs := newFakeJobsClient()
	o := newTestOrchestrator(chat, jobs)
	o.suggestionsCache = cache.NewTypedCache[[]string](newFakeCacheService())
	require.NoError(t, o.suggestionsCache.Set("suggestions:c1", []string{"cached q"}, time.Hour))

	o.FetchSuggestions(context.Background(), "c1")

	// served from cache: no remote suggestion call, no polling, no re-save
	convo, ok := chat.Registry().ByID("c1")
	require.True(t, ok)
	assert.Equal(t, []string{"cached q"}, convo.Suggestions)
	assert.Equal(t, 0, jobs.suggestCalls)
	assert.Equal(t, 0, jobs.queryCount())
	assert.Empty(t, jobs.saved)

	last := chat.LatestMessage("c1")
	require.NotNil(t, last)
	assert.False(t, last.IsStreaming)
}

func TestFetchSuggestionsFailureClearsStreaming(t *testing.T) {
	chat, _, _ := newTestChat()
	saveConvo(chat, &models.Conversation{ID: "c1"})
	chat.InsertMessage("answer", "c1", MessageOptions{})

	jobs := newFakeJobsClient()
	jobs.suggestErr = errors.New("suggest unavailable")
	o := newTestOrchestrator(chat, jobs)

	o.FetchSuggestions(context.Background(), "c1")

	last := chat.LatestMessage("c1")
	require.NotNil(t, last)
	assert.False(t, last.IsStreaming)
	convo, _ := chat.Registry().ByID("c1")
	assert.Empty(t, convo.Suggestions)
	assert.Empty(t, jobs.saved)
}
