package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTimer_ObserveStage(t *testing.T) {
	before := testutil.CollectAndCount(StageLatency)

	timer := NewTimer("test_stage")
	d := timer.ObserveStage()

	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Equal(t, before+1, testutil.CollectAndCount(StageLatency))
}

func TestThroughputTracker(t *testing.T) {
	tr := NewThroughputTracker("jsonl", "file")
	tr.Increment(10)
	tr.Increment(5)
	time.Sleep(5 * time.Millisecond)

	got := tr.GetAndReset()
	assert.Greater(t, got, 0.0)
	assert.Equal(t, got, testutil.ToFloat64(Throughput.WithLabelValues("jsonl", "file")))
}

func TestRecordsConverted(t *testing.T) {
	c := RecordsConverted.WithLabelValues("metrics_test", StatusOK)
	before := testutil.ToFloat64(c)
	c.Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(c))
}
