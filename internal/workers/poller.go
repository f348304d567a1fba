// Package workers implements the queue-driven background workers: poll,
// lease a batch, process each item with a per-item timeout, mark
// complete or fail, sleep. Retention and Maintenance run on a cron
// schedule instead of a lease loop since they don't consume job-queue
// items keyed by memory.
package workers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/types"
)

// Poller drives one job type's lease/process/complete-or-fail loop on a
// fixed poll interval, the same ticker-driven shape the daemon uses for
// its own periodic background work.
type Poller struct {
	Name         string
	JobType      types.JobType
	PollInterval time.Duration
	BatchSize    int
	LeaseSeconds int
	ItemTimeout  time.Duration
	BaseBackoff  int64
	CapBackoff   int64

	Store   storage.Storage
	Log     zerolog.Logger
	Process func(ctx context.Context, job *types.Job) (result string, err error)
}

func (p *Poller) workerID() string {
	return p.Name + ":" + uuid.NewString()[:8]
}

// Run blocks, polling until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	id := p.workerID()
	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx, id)
		}
	}
}

func (p *Poller) drain(ctx context.Context, workerID string) {
	jobs, err := p.Store.LeaseJobs(ctx, workerID, []types.JobType{p.JobType}, p.BatchSize, p.LeaseSeconds)
	if err != nil {
		p.Log.Error().Err(err).Str("worker", p.Name).Msg("lease failed")
		return
	}
	for _, job := range jobs {
		p.processOne(ctx, job)
	}
}

func (p *Poller) processOne(ctx context.Context, job *types.Job) {
	itemCtx, cancel := context.WithTimeout(ctx, p.ItemTimeout)
	defer cancel()

	result, err := p.Process(itemCtx, job)
	if err != nil {
		code := signeterr.CodeInternal
		if se, ok := signeterr.As(err); ok {
			code = se.Code
		}
		if failErr := p.Store.FailJob(ctx, job.ID, job.LeaseID, err.Error(), string(code), p.BaseBackoff, p.CapBackoff); failErr != nil {
			p.Log.Error().Err(failErr).Str("worker", p.Name).Str("job_id", job.ID).Msg("fail-job failed")
		}
		return
	}
	if err := p.Store.CompleteJob(ctx, job.ID, job.LeaseID, result); err != nil {
		p.Log.Error().Err(err).Str("worker", p.Name).Str("job_id", job.ID).Msg("complete-job failed")
	}
}
