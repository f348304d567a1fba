package workers

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/signet-ai/signet/internal/storage"
)

// RetentionConfig carries the four purge windows plus the per-sweep
// batch limit and the cron schedule the sweep runs on.
type RetentionConfig struct {
	Schedule         string
	TombstoneWindow  time.Duration
	HistoryWindow    time.Duration
	CompletedWindow  time.Duration
	DeadWindow       time.Duration
	BatchLimit       int
}

func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		Schedule:        "@every 3h",
		TombstoneWindow: 30 * 24 * time.Hour,
		HistoryWindow:   90 * 24 * time.Hour,
		CompletedWindow: 7 * 24 * time.Hour,
		DeadWindow:      14 * 24 * time.Hour,
		BatchLimit:      500,
	}
}

// RetentionScheduler runs the four-stage retention sweep on a cron
// schedule, the way the daemon's other periodic maintenance runs.
type RetentionScheduler struct {
	store storage.Storage
	cfg   RetentionConfig
	log   zerolog.Logger
	cron  *cron.Cron
}

func NewRetentionScheduler(store storage.Storage, cfg RetentionConfig, log zerolog.Logger) *RetentionScheduler {
	return &RetentionScheduler{store: store, cfg: cfg, log: log, cron: cron.New()}
}

// Start registers the sweep and begins the cron scheduler. Call Stop to
// halt it; the returned context from cron.Stop() is not awaited here.
func (r *RetentionScheduler) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.cfg.Schedule, func() {
		r.sweep(ctx)
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *RetentionScheduler) Stop() {
	r.cron.Stop()
}

func (r *RetentionScheduler) sweep(ctx context.Context) {
	summary, err := r.store.RunRetentionSweep(ctx,
		int64(r.cfg.TombstoneWindow/time.Millisecond),
		int64(r.cfg.HistoryWindow/time.Millisecond),
		int64(r.cfg.CompletedWindow/time.Millisecond),
		int64(r.cfg.DeadWindow/time.Millisecond),
		r.cfg.BatchLimit,
	)
	if err != nil {
		r.log.Error().Err(err).Msg("retention sweep failed")
		return
	}
	r.log.Info().
		Int("tombstones_purged", summary.TombstonesPurged).
		Int("history_purged", summary.HistoryPurged).
		Int("completed_jobs_purged", summary.CompletedJobsPurged).
		Int("dead_jobs_purged", summary.DeadJobsPurged).
		Int("graph_links_purged", summary.GraphLinksPurged).
		Int("entities_orphaned", summary.EntitiesOrphaned).
		Msg("retention sweep complete")
}
