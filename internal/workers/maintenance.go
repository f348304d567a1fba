package workers

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/signet-ai/signet/internal/metrics"
	"github.com/signet-ai/signet/internal/storage"
)

// MaintenanceReport is a point-in-time diagnostic snapshot: dead job
// count, orphan entity count, a vacuum suggestion, and a simple health
// score.
type MaintenanceReport struct {
	GeneratedAt       time.Time `json:"generated_at"`
	OrphanedEntities  int       `json:"orphaned_entities"`
	DeadJobs          int       `json:"dead_jobs"`
	HealthScore       int       `json:"health_score"`
	VacuumSuggested   bool      `json:"vacuum_suggested"`
}

// MaintenanceScheduler runs lightweight diagnostics on a cron schedule:
// orphan detection, a vacuum suggestion heuristic, and a health score
// folded into /api/status by the caller.
type MaintenanceScheduler struct {
	store    storage.Storage
	schedule string
	log      zerolog.Logger
	cron     *cron.Cron

	mu     sync.Mutex
	latest *MaintenanceReport
}

func NewMaintenanceScheduler(store storage.Storage, schedule string, log zerolog.Logger) *MaintenanceScheduler {
	if schedule == "" {
		schedule = "@every 1h"
	}
	return &MaintenanceScheduler{store: store, schedule: schedule, log: log, cron: cron.New()}
}

func (m *MaintenanceScheduler) Start(ctx context.Context) error {
	_, err := m.cron.AddFunc(m.schedule, func() {
		m.run(ctx)
	})
	if err != nil {
		return err
	}
	m.cron.Start()
	return nil
}

func (m *MaintenanceScheduler) Stop() {
	m.cron.Stop()
}

// Latest returns the most recently computed report, or nil if none has
// run yet.
func (m *MaintenanceScheduler) Latest() *MaintenanceReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

func (m *MaintenanceScheduler) run(ctx context.Context) {
	report := &MaintenanceReport{GeneratedAt: time.Now()}

	db := m.store.UnderlyingDB()
	if db != nil {
		_ = db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM entities WHERE mention_count = 0`).Scan(&report.OrphanedEntities)
		_ = db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM jobs WHERE status = 'dead'`).Scan(&report.DeadJobs)

		rows, err := db.QueryContext(ctx, `
SELECT job_type, status, COUNT(*) FROM jobs GROUP BY job_type, status`)
		if err == nil {
			for rows.Next() {
				var jobType, status string
				var count int
				if rows.Scan(&jobType, &status, &count) == nil {
					metrics.SetQueueDepth(jobType, status, count)
				}
			}
			rows.Close()
		}
	}

	report.VacuumSuggested = report.OrphanedEntities > 1000
	report.HealthScore = 100
	if report.DeadJobs > 0 {
		report.HealthScore -= min(report.DeadJobs, 40)
	}
	if report.OrphanedEntities > 0 {
		report.HealthScore -= min(report.OrphanedEntities/10, 20)
	}
	if report.HealthScore < 0 {
		report.HealthScore = 0
	}

	m.mu.Lock()
	m.latest = report
	m.mu.Unlock()

	metrics.SetHealthScore(report.HealthScore)

	m.log.Info().
		Int("orphaned_entities", report.OrphanedEntities).
		Int("dead_jobs", report.DeadJobs).
		Int("health_score", report.HealthScore).
		Msg("maintenance sweep complete")
}
