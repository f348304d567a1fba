package workers

import "time"

// PollConfig is the subset of the pipeline config each lease-loop worker
// needs: poll cadence, batch size, lease duration, per-item timeout, and
// the backoff bounds passed straight through to FailJob.
type PollConfig struct {
	PollInterval time.Duration
	BatchSize    int
	LeaseSeconds int
	ItemTimeout  time.Duration
	BaseBackoff  int64
	CapBackoff   int64
}

// DefaultPollConfig returns sane defaults for a worker that hasn't had
// its interval/batch tuned by the pipeline config yet.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		PollInterval: 2 * time.Second,
		BatchSize:    10,
		LeaseSeconds: 60,
		ItemTimeout:  30 * time.Second,
		BaseBackoff:  5,
		CapBackoff:   300,
	}
}
