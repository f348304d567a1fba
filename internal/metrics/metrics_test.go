package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signet-ai/signet/internal/types"
)

func TestSetQueueDepth(t *testing.T) {
	SetQueueDepth("embed", "pending", 3)
	if got := testutil.ToFloat64(QueueDepth.WithLabelValues("embed", "pending")); got != 3 {
		t.Errorf("QueueDepth = %v, want 3", got)
	}

	SetQueueDepth("embed", "pending", 0)
	if got := testutil.ToFloat64(QueueDepth.WithLabelValues("embed", "pending")); got != 0 {
		t.Errorf("QueueDepth after clear = %v, want 0", got)
	}
}

func TestSetHealthScore(t *testing.T) {
	SetHealthScore(87)
	if got := testutil.ToFloat64(HealthScore); got != 87 {
		t.Errorf("HealthScore = %v, want 87", got)
	}
}

func TestMarkRecallLegs(t *testing.T) {
	before := testutil.ToFloat64(RecallLegsUsed.WithLabelValues("vector"))

	MarkRecallLegs(types.LegKeyword, types.LegVector)

	afterKeyword := testutil.ToFloat64(RecallLegsUsed.WithLabelValues("keyword"))
	afterVector := testutil.ToFloat64(RecallLegsUsed.WithLabelValues("vector"))

	if afterKeyword < 1 {
		t.Errorf("keyword leg counter did not increment, got %v", afterKeyword)
	}
	if afterVector != before+1 {
		t.Errorf("vector leg counter = %v, want %v", afterVector, before+1)
	}

	// graph leg untouched by this call
	MarkRecallLegs()
}

func TestObserveRecallLatencyKeepsSingleMetric(t *testing.T) {
	countBefore := testutil.CollectAndCount(RecallLatency)
	ObserveRecallLatency(5 * time.Millisecond)
	countAfter := testutil.CollectAndCount(RecallLatency)
	if countAfter != countBefore {
		t.Errorf("CollectAndCount changed from %d to %d; histogram metric count should stay 1", countBefore, countAfter)
	}
}
