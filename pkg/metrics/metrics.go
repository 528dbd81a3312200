// Package metrics exposes Prometheus collectors for the conversion pipeline.
//
// # Overview
//
// The package provides:
//   - Counters for converted and failed records, diagnostics and batches
//   - Latency histograms per conversion stage
//   - Throughput tracking for a running pipeline
//
// All collectors are registered with the default registry on package
// initialization; the CLI serves them with promhttp when a metrics address
// is configured.
//
// # Basic Usage
//
//	timer := metrics.NewTimer(metrics.StageInfer)
//	unified, diags := inferencer.Infer(rows)
//	timer.ObserveStage()
//
//	metrics.RecordsConverted.WithLabelValues("datastore", metrics.StatusOK).Add(float64(n))
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage labels for StageLatency
const (
	StageFlatten   = "flatten"
	StageInfer     = "infer"
	StageBuild     = "build"
	StageSerialize = "serialize"
	StageWrite     = "write"
)

// Status labels
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

var (
	// RecordsConverted counts records by outcome.
	// Labels: source (record source type), status (ok/failed)
	//
	// Example:
	//	metrics.RecordsConverted.WithLabelValues("mongodb", metrics.StatusFailed).Inc()
	RecordsConverted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docarrow_records_converted_total",
			Help: "Total number of records converted, by outcome",
		},
		[]string{"source", "status"},
	)

	// BatchesEncoded counts encode calls by outcome
	BatchesEncoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docarrow_batches_encoded_total",
			Help: "Total number of batches encoded",
		},
		[]string{"status"},
	)

	// Diagnostics counts advisory warnings.
	// Labels: kind (unsupported_value/type_conflict)
	Diagnostics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docarrow_diagnostics_total",
			Help: "Total number of conversion diagnostics",
		},
		[]string{"kind"},
	)

	// StageLatency tracks the duration of each conversion stage in seconds.
	// Labels: stage (flatten/infer/build/serialize/write)
	StageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "docarrow_stage_duration_seconds",
			Help: "Duration of conversion stages in seconds",
			Buckets: []float64{
				1e-5, // 10μs - tiny batches
				1e-4, // 100μs
				1e-3, // 1ms
				1e-2, // 10ms
				1e-1, // 100ms
				1,    // 1s - large batches
				10,   // 10s - remote writes
			},
		},
		[]string{"stage"},
	)

	// BatchColumns tracks the column count of the last encoded batch
	BatchColumns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docarrow_batch_columns",
			Help: "Number of columns in the last encoded batch",
		},
	)

	// ArenaBytes tracks Arrow memory held by the last encoded batch
	ArenaBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docarrow_arena_allocated_bytes",
			Help: "Arrow memory allocated for the last encoded batch",
		},
	)

	// BytesWritten counts serialized bytes handed to destinations.
	// Labels: format (arrow/arrow_stream/parquet/avro), destination
	BytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docarrow_bytes_written_total",
			Help: "Total bytes written to destinations",
		},
		[]string{"format", "destination"},
	)

	// Throughput tracks records per second
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docarrow_throughput_records_per_second",
			Help: "Current throughput in records per second",
		},
		[]string{"source", "destination"},
	)
)

// Timer measures the duration of one stage
type Timer struct {
	start time.Time
	stage string
}

// NewTimer creates a timer for stage and starts it
func NewTimer(stage string) *Timer {
	return &Timer{
		start: time.Now(),
		stage: stage,
	}
}

// Stop returns the elapsed duration since creation
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveStage records the elapsed time in StageLatency and returns it
func (t *Timer) ObserveStage() time.Duration {
	d := t.Stop()
	StageLatency.WithLabelValues(t.stage).Observe(d.Seconds())
	return d
}

// ThroughputTracker tracks records per second over time windows.
// Safe for concurrent use.
type ThroughputTracker struct {
	mu          sync.Mutex
	count       int64
	lastReset   time.Time
	source      string
	destination string
}

// NewThroughputTracker creates a tracker labelled with the pipeline endpoints
func NewThroughputTracker(source, destination string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset:   time.Now(),
		source:      source,
		destination: destination,
	}
}

// Increment adds n to the record count
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset computes the throughput since the last reset, publishes it
// and starts a new window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed
	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.source, t.destination).Set(throughput)
	return throughput
}
