package aggregator

import (
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// LiveEstimator is a cheap, approximate latency tracker used only to
// annotate in-flight trace spans. It is never the source of the exact
// percentiles ComputeMetrics returns; it exists because recomputing exact
// percentiles on every single request is O(n log n) and wasteful for a
// value that is discarded on the next request anyway (spec §9).
type LiveEstimator struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// NewLiveEstimator builds an estimator tracking latencies from 1µs
// (0.001ms) to 60000ms with 3 significant figures, mirroring the teacher's
// collector.
func NewLiveEstimator() *LiveEstimator {
	return &LiveEstimator{
		hist: hdrhistogram.New(1, 60_000_000, 3),
	}
}

// Record adds one latency observation in milliseconds.
func (e *LiveEstimator) Record(latencyMs float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := int64(latencyMs * 1000) // microsecond precision, matches hist bounds
	if v < e.hist.LowestTrackableValue() {
		v = e.hist.LowestTrackableValue()
	}
	if v > e.hist.HighestTrackableValue() {
		v = e.hist.HighestTrackableValue()
	}
	_ = e.hist.RecordValue(v)
}

// ApproxP95Ms returns the approximate p95 latency in milliseconds, for
// span attributes only.
func (e *LiveEstimator) ApproxP95Ms() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(e.hist.ValueAtQuantile(95)) / 1000.0
}
