// Package metrics declares the daemon's prometheus collectors: queue
// depth per job type/status, recall latency and leg usage, and the
// health score consumed by GET /api/status. There is no separate
// /metrics exporter — these are read back as a derived summary rather
// than scraped, so the collectors are plain package vars any package can
// update without threading a registry handle through every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signet-ai/signet/internal/types"
)

var (
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "signet_queue_depth",
			Help: "Number of jobs by job_type and status",
		},
		[]string{"job_type", "status"},
	)

	RecallLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signet_recall_latency_seconds",
			Help:    "Recall call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecallLegsUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signet_recall_legs_used_total",
			Help: "Count of recall calls that used each scoring leg",
		},
		[]string{"leg"},
	)

	HealthScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signet_health_score",
			Help: "Maintenance sweep's 0-100 health score",
		},
	)
)

func init() {
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(RecallLatency)
	prometheus.MustRegister(RecallLegsUsed)
	prometheus.MustRegister(HealthScore)
}

// ObserveRecallLatency records one Recall call's wall-clock duration.
func ObserveRecallLatency(d time.Duration) {
	RecallLatency.Observe(d.Seconds())
}

// MarkRecallLegs increments the per-leg usage counter for each scoring
// leg that actually contributed to a Recall call's results.
func MarkRecallLegs(used ...types.RecallLeg) {
	for _, leg := range used {
		RecallLegsUsed.WithLabelValues(string(leg)).Inc()
	}
}

// SetQueueDepth publishes one job_type/status pair's current backlog
// count, replacing whatever value was previously recorded for that pair.
func SetQueueDepth(jobType, status string, count int) {
	QueueDepth.WithLabelValues(jobType, status).Set(float64(count))
}

// SetHealthScore publishes the maintenance sweep's latest health score.
func SetHealthScore(score int) {
	HealthScore.Set(float64(score))
}
