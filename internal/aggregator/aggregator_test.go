package aggregator

import (
	"testing"

	"github.com/torosent/loadsentinel/internal/model"
)

func successResults(latencies ...float64) []model.RequestResult {
	out := make([]model.RequestResult, len(latencies))
	for i, l := range latencies {
		out[i] = model.RequestResult{ResponseTimeMs: l, Success: true, StatusCode: 200, TimestampMs: int64(i) * 10}
	}
	return out
}

func TestComputeMetrics_Percentiles(t *testing.T) {
	results := successResults(10, 20, 30, 40, 50, 60, 70, 80, 90, 100)
	m := ComputeMetrics(results, 10)

	if m.P95ResponseTime != 95.5 {
		t.Errorf("p95 = %v, want 95.5", m.P95ResponseTime)
	}
	if m.P99ResponseTime != 99.1 {
		t.Errorf("p99 = %v, want 99.1", m.P99ResponseTime)
	}
	if m.AvgResponseTime != 55.0 {
		t.Errorf("avg = %v, want 55.0", m.AvgResponseTime)
	}
	if m.RequestsPerSecond != 1.0 {
		t.Errorf("rps = %v, want 1.0", m.RequestsPerSecond)
	}
}

func TestComputeMetrics_Empty(t *testing.T) {
	m := ComputeMetrics(nil, 10)
	if m.TotalRequests != 0 || m.P95ResponseTime != 0 || m.MinResponseTime != 0 {
		t.Errorf("empty metrics not all zero: %+v", m)
	}
}

func TestComputeMetrics_SingleSuccess(t *testing.T) {
	results := successResults(100)
	m := ComputeMetrics(results, 1)
	if m.MinResponseTime != 100 || m.MaxResponseTime != 100 || m.AvgResponseTime != 100 ||
		m.P95ResponseTime != 100 || m.P99ResponseTime != 100 {
		t.Errorf("single-success metrics wrong: %+v", m)
	}
}

func TestComputeMetrics_SingleFailure(t *testing.T) {
	results := []model.RequestResult{{ResponseTimeMs: 50, Success: false, ErrorTag: "timeout"}}
	m := ComputeMetrics(results, 1)
	if m.P95ResponseTime != 0 || m.MinResponseTime != 0 {
		t.Errorf("failure-only percentiles should be zero: %+v", m)
	}
	if m.TimeoutCount != 1 || m.TimeoutRatePercentage != 100 {
		t.Errorf("timeout accounting wrong: %+v", m)
	}
}

func TestComputeMetrics_Invariants(t *testing.T) {
	results := append(successResults(10, 20, 30),
		model.RequestResult{ResponseTimeMs: 5, Success: false, ErrorTag: "timeout"},
		model.RequestResult{ResponseTimeMs: 5, Success: false, StatusCode: 500},
	)
	m := ComputeMetrics(results, 5)
	if m.SuccessfulRequests+m.FailedRequests != m.TotalRequests {
		t.Errorf("successful+failed != total: %+v", m)
	}
	if m.TimeoutCount > m.FailedRequests {
		t.Errorf("timeoutCount > failedRequests: %+v", m)
	}
	if !(m.MinResponseTime <= m.AvgResponseTime && m.AvgResponseTime <= m.P95ResponseTime &&
		m.P95ResponseTime <= m.P99ResponseTime && m.P99ResponseTime <= m.MaxResponseTime) {
		t.Errorf("percentile monotonicity violated: %+v", m)
	}
}

func TestComputeMetrics_Idempotent(t *testing.T) {
	results := successResults(10, 20, 30, 40, 50)
	a := ComputeMetrics(results, 5)
	b := ComputeMetrics(results, 5)
	if a != b {
		t.Errorf("ComputeMetrics not idempotent: %+v vs %+v", a, b)
	}
}

func TestComputeMetrics_ExactOnThresholdErrorRate(t *testing.T) {
	results := append(successResults(10, 10, 10, 10),
		model.RequestResult{ResponseTimeMs: 10, Success: false, StatusCode: 500})
	m := ComputeMetrics(results, 5)
	if m.ErrorRatePercentage != 20 {
		t.Fatalf("error rate = %v, want 20", m.ErrorRatePercentage)
	}
}

func TestBuildTimeSeries_Buckets(t *testing.T) {
	startedAt := int64(1000)
	results := []model.RequestResult{
		{ResponseTimeMs: 10, Success: true, TimestampMs: startedAt},
		{ResponseTimeMs: 20, Success: true, TimestampMs: startedAt + 500},
		{ResponseTimeMs: 30, Success: false, ErrorTag: "timeout", TimestampMs: startedAt + 1200},
	}
	ts := BuildTimeSeries(results, startedAt)
	if len(ts) != 2 {
		t.Fatalf("expected 2 buckets, got %d: %+v", len(ts), ts)
	}
	if ts[0].Time != startedAt || ts[0].SuccessCount != 2 || ts[0].ResponseTime != 15 {
		t.Errorf("bucket 0 wrong: %+v", ts[0])
	}
	if ts[1].Time != startedAt+1000 || ts[1].FailCount != 1 || ts[1].ErrorRate != 100 {
		t.Errorf("bucket 1 wrong: %+v", ts[1])
	}
}

func TestBuildTimeSeries_Empty(t *testing.T) {
	if ts := BuildTimeSeries(nil, 0); ts != nil {
		t.Errorf("expected nil time series for empty input, got %+v", ts)
	}
}

func TestBuildTimeSeries_Idempotent(t *testing.T) {
	results := []model.RequestResult{{ResponseTimeMs: 10, Success: true, TimestampMs: 0}}
	a := BuildTimeSeries(results, 0)
	b := BuildTimeSeries(results, 0)
	if len(a) != len(b) || a[0] != b[0] {
		t.Errorf("BuildTimeSeries not idempotent")
	}
}
