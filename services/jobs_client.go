package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"go_datachat_backend/config"
	"go_datachat_backend/models"
	"go_datachat_backend/pkg/logging"
	"io"
	"net/http"
	"strings"
	"time"
)

// JobsClient is the boundary to the remote analytics / job service. Everything
// behind it is opaque JSON over HTTP.
type JobsClient interface {
	BreakdownQuestion(ctx context.Context, question string, sessionID int64, convoID string) (*models.BreakdownResponse, error)
	QueryJobDetail(ctx context.Context, jobID string, convoID string) (*models.JobDetail, error)
	GetDataSummary(ctx context.Context, convoID string) (*models.DataSummaryResponse, error)
	RefreshDataSummary(ctx context.Context, convoID string) (*models.RefreshSummaryResponse, error)
	CreateSession(ctx context.Context, convoID string) (*models.CreateSessionResponse, error)
	GetSuggestedQuestions(ctx context.Context, convoID string) (*models.SuggestionsResponse, error)
	SaveSuggestions(ctx context.Context, convoID string, suggestions []string) error
}

type HTTPJobsClient struct {
	baseURL string
	auth    string
	client  *http.Client
}

func NewHTTPJobsClient(cfg *config.Config) *HTTPJobsClient {
	logging.Logger.Info("job service client",
		"url", cfg.JobServiceURL,
		"auth", MaskAuth(cfg.JobServiceAuth),
	)
	return &HTTPJobsClient{
		baseURL: strings.TrimRight(cfg.JobServiceURL, "/"),
		auth:    cfg.JobServiceAuth,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// MaskAuth hides credentials for logging, keeping only the user part.
func MaskAuth(auth string) string {
	user, _, found := strings.Cut(auth, ":")
	if !found {
		return "***"
	}
	return user + ":***"
}

func (c *HTTPJobsClient) postJSON(ctx context.Context, path string, body any, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user, pass, found := strings.Cut(c.auth, ":"); found {
		req.SetBasicAuth(user, pass)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logging.Logger.Error("fail closing response body", "error", err)
		}
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to fetch %s: %s, %s", path, resp.Status, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *HTTPJobsClient) BreakdownQuestion(ctx context.Context, question string, sessionID int64, convoID string) (*models.BreakdownResponse, error) {
	var res models.BreakdownResponse
	err := c.postJSON(ctx, "/v1/questions/breakdown", map[string]any{
		"q":          question,
		"session_id": sessionID,
		"convo_id":   convoID,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPJobsClient) QueryJobDetail(ctx context.Context, jobID string, convoID string) (*models.JobDetail, error) {
	var res models.JobDetail
	err := c.postJSON(ctx, "/v1/jobs/query", map[string]any{
		"job_id":   jobID,
		"convo_id": convoID,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetDataSummary is a boundary lookup, retried a few times because the remote
// occasionally answers 5xx right after a summary job is created.
func (c *HTTPJobsClient) GetDataSummary(ctx context.Context, convoID string) (*models.DataSummaryResponse, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}
		var res models.DataSummaryResponse
		if err := c.postJSON(ctx, "/v1/data-summaries/query", map[string]any{
			"convo_id": convoID,
		}, &res); err != nil {
			lastErr = err
			continue
		}
		return &res, nil
	}
	return nil, lastErr
}

func (c *HTTPJobsClient) RefreshDataSummary(ctx context.Context, convoID string) (*models.RefreshSummaryResponse, error) {
	var res models.RefreshSummaryResponse
	err := c.postJSON(ctx, "/v1/data-summaries/refresh", map[string]any{
		"convo_id": convoID,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPJobsClient) CreateSession(ctx context.Context, convoID string) (*models.CreateSessionResponse, error) {
	var res models.CreateSessionResponse
	err := c.postJSON(ctx, "/v1/sessions", map[string]any{
		"convo_id": convoID,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPJobsClient) GetSuggestedQuestions(ctx context.Context, convoID string) (*models.SuggestionsResponse, error) {
	var res models.SuggestionsResponse
	err := c.postJSON(ctx, "/v1/questions/suggest", map[string]any{
		"convo_id": convoID,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPJobsClient) SaveSuggestions(ctx context.Context, convoID string, suggestions []string) error {
	return c.postJSON(ctx, "/v1/questions/suggest/save", map[string]any{
		"convo_id":    convoID,
		"suggestions": suggestions,
	}, nil)
}
