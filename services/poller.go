package services

import (
	"context"
	"errors"
	"go_datachat_backend/models"
	"time"
)

// JobQuerier is the slice of JobsClient the poller needs.
type JobQuerier interface {
	QueryJobDetail(ctx context.Context, jobID string, convoID string) (*models.JobDetail, error)
}

// JobObservation is one polling snapshot: a job detail or a transport error,
// never both.
type JobObservation struct {
	Detail *models.JobDetail
	Err    error
}

// JobPoller yields job status snapshots at a fixed cadence until the job
// reaches a terminal status (done/failed) or the first transport failure.
// It is pull-based: the next status query is not issued before the previous
// observation has been consumed, so mutations derived from observation N are
// applied before N+1 exists.
type JobPoller struct {
	querier  JobQuerier
	jobID    string
	convoID  string
	interval time.Duration
	polled   bool
	done     bool
}

func NewJobPoller(querier JobQuerier, jobID string, convoID string, interval time.Duration) *JobPoller {
	return &JobPoller{
		querier:  querier,
		jobID:    jobID,
		convoID:  convoID,
		interval: interval,
	}
}

// Next blocks for the inter-poll delay (skipped before the first query) and
// one status query. It returns false once the sequence has terminated or ctx
// is cancelled; a transport failure is yielded as the final observation.
func (p *JobPoller) Next(ctx context.Context) (JobObservation, bool) {
	if p.done {
		return JobObservation{}, false
	}
	if p.polled {
		select {
		case <-ctx.Done():
			p.done = true
			return JobObservation{}, false
		case <-time.After(p.interval):
		}
	}
	if ctx.Err() != nil {
		p.done = true
		return JobObservation{}, false
	}

	detail, err := p.querier.QueryJobDetail(ctx, p.jobID, p.convoID)
	p.polled = true
	if err != nil {
		p.done = true
		return JobObservation{Err: err}, true
	}
	if detail == nil {
		p.done = true
		return JobObservation{Err: errors.New("empty job detail")}, true
	}
	if detail.Result.Terminal() {
		p.done = true
	}
	return JobObservation{Detail: detail}, true
}
