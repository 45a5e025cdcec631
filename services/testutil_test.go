package services

import (
	"context"
	"encoding/json"
	"errors"
	"go_datachat_backend/models"
	"sync"
	"time"
)

// fakeJobsClient replays a scripted sequence of job details. Its clock moves
// one second per status query so time-window behavior is deterministic.
type fakeJobsClient struct {
	mu      sync.Mutex
	now     time.Time
	details []*models.JobDetail
	idx     int
	queries int
	// returned once the script runs out; without it the last detail repeats
	queryErr error

	summaryStatus string
	summaryErr    error

	sessionID    int64
	sessionCalls int
	sessionErr   error

	breakdownJobID string
	breakdownCode  int
	breakdownMsg   string
	breakdownErr   error

	refreshResp  *models.RefreshSummaryResponse
	refreshCalls int

	suggestResp  *models.SuggestionsResponse
	suggestErr   error
	suggestCalls int
	saved        [][]string
}

func newFakeJobsClient(details ...*models.JobDetail) *fakeJobsClient {
	return &fakeJobsClient{
		now:            time.Unix(0, 0),
		details:        details,
		summaryStatus:  models.JobStatusDone,
		sessionID:      1,
		breakdownJobID: "job-1",
		breakdownCode:  200,
	}
}

func (f *fakeJobsClient) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeJobsClient) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func (f *fakeJobsClient) QueryJobDetail(ctx context.Context, jobID string, convoID string) (*models.JobDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(time.Second)
	f.queries++

	if f.idx < len(f.details) {
		d := f.details[f.idx]
		f.idx++
		return d, nil
	}
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.details) > 0 {
		return f.details[len(f.details)-1], nil
	}
	return nil, errors.New("no scripted job detail")
}

func (f *fakeJobsClient) BreakdownQuestion(ctx context.Context, question string, sessionID int64, convoID string) (*models.BreakdownResponse, error) {
	if f.breakdownErr != nil {
		return nil, f.breakdownErr
	}
	res := &models.BreakdownResponse{Code: f.breakdownCode, Msg: f.breakdownMsg}
	res.Result.JobID = f.breakdownJobID
	return res, nil
}

func (f *fakeJobsClient) GetDataSummary(ctx context.Context, convoID string) (*models.DataSummaryResponse, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	res := &models.DataSummaryResponse{Code: 200}
	res.Result.Status = f.summaryStatus
	return res, nil
}

func (f *fakeJobsClient) RefreshDataSummary(ctx context.Context, convoID string) (*models.RefreshSummaryResponse, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	if f.refreshResp != nil {
		return f.refreshResp, nil
	}
	res := &models.RefreshSummaryResponse{Code: 200}
	res.Result.DataSummaryID = 1
	res.Result.JobID = "job-refresh"
	return res, nil
}

func (f *fakeJobsClient) CreateSession(ctx context.Context, convoID string) (*models.CreateSessionResponse, error) {
	f.mu.Lock()
	f.sessionCalls++
	f.mu.Unlock()
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return &models.CreateSessionResponse{SessionID: f.sessionID}, nil
}

func (f *fakeJobsClient) GetSuggestedQuestions(ctx context.Context, convoID string) (*models.SuggestionsResponse, error) {
	f.mu.Lock()
	f.suggestCalls++
	f.mu.Unlock()
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	if f.suggestResp != nil {
		return f.suggestResp, nil
	}
	return &models.SuggestionsResponse{Code: 200}, nil
}

func (f *fakeJobsClient) SaveSuggestions(ctx context.Context, convoID string, suggestions []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, suggestions)
	return nil
}

// fakeCacheService is a map-backed stand-in for the two-level cache.
type fakeCacheService struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newFakeCacheService() *fakeCacheService {
	return &fakeCacheService{items: make(map[string]interface{})}
}

func (f *fakeCacheService) GetCache(key string) (interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.items[key]
	return value, ok
}

func (f *fakeCacheService) SetCache(key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = value
	return nil
}

func (f *fakeCacheService) DelCache(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, key)
	return nil
}

type fakeMessageRepo struct {
	mu         sync.Mutex
	records    map[string]*models.MessageRecord
	order      []string
	listCalls  int
	failUpsert bool
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{records: make(map[string]*models.MessageRecord)}
}

func (f *fakeMessageRepo) Upsert(ctx context.Context, record *models.MessageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert {
		return errors.New("db down")
	}
	if _, ok := f.records[record.ID]; !ok {
		f.order = append(f.order, record.ID)
	}
	f.records[record.ID] = record
	return nil
}

func (f *fakeMessageRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	return nil
}

func (f *fakeMessageRepo) SetBookmark(ctx context.Context, id string, bookmarked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[id]; ok {
		record.Bookmarked = bookmarked
	}
	return nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, id string) (*models.MessageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return record, nil
}

func (f *fakeMessageRepo) ListByConversation(ctx context.Context, convoID string) ([]*models.MessageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []*models.MessageRecord
	for _, id := range f.order {
		if record, ok := f.records[id]; ok && record.ConversationID == convoID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) bookmarkOf(id string) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return false, false
	}
	return record.Bookmarked, true
}

type fakeConversationRepo struct {
	mu      sync.Mutex
	records map[string]*models.ConversationRecord
	deletes int
	updates int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{records: make(map[string]*models.ConversationRecord)}
}

func (f *fakeConversationRepo) Create(ctx context.Context, record *models.ConversationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.ID] = record
	return nil
}

func (f *fakeConversationRepo) Update(ctx context.Context, record *models.ConversationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.records[record.ID] = record
	return nil
}

func (f *fakeConversationRepo) Rename(ctx context.Context, id string, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[id]; ok {
		record.Name = name
	}
	return nil
}

func (f *fakeConversationRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.records, id)
	return nil
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, id string) (*models.ConversationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return record, nil
}

func (f *fakeConversationRepo) List(ctx context.Context) ([]*models.ConversationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.ConversationRecord, 0, len(f.records))
	for _, record := range f.records {
		out = append(out, record)
	}
	return out, nil
}

func newTestChat() (*ChatService, *fakeMessageRepo, *fakeConversationRepo) {
	msgRepo := newFakeMessageRepo()
	convoRepo := newFakeConversationRepo()
	chat := NewChatService(NewMessageStore(), NewSessionRegistry(), convoRepo, msgRepo)
	return chat, msgRepo, convoRepo
}

func newTestOrchestrator(chat *ChatService, jobs *fakeJobsClient) *TaskOrchestrator {
	o := NewTaskOrchestrator(chat, jobs, nil, time.Millisecond, 10*time.Second)
	o.now = jobs.Now
	return o
}

func subTask(id string, status string) models.ResolvedAnswer {
	return models.ResolvedAnswer{
		TaskID: id,
		Type:   models.AnswerTypeDataRetrieval,
		Status: status,
	}
}

func breakdownDetail(status string, subs ...models.ResolvedAnswer) *models.JobDetail {
	answer := models.BreakdownAnswer{
		TaskID:   "0",
		Type:     models.AnswerTypeBreakdown,
		Status:   status,
		SubTasks: subs,
	}
	raw, _ := json.Marshal(answer)
	return &models.JobDetail{Code: 200, Result: models.JobResult{Status: status, Result: raw}}
}

func plainDetail(status string) *models.JobDetail {
	return &models.JobDetail{Code: 200, Result: models.JobResult{Status: status}}
}

func understandingDetail(summary string) *models.JobDetail {
	raw, _ := json.Marshal(models.DatabaseUnderstanding{Summary: summary})
	return &models.JobDetail{Code: 200, Result: models.JobResult{Status: models.JobStatusDone, Result: raw}}
}
