package safety

import (
	"testing"

	"github.com/torosent/loadsentinel/internal/model"
)

func TestScore_NoPenaltiesIsSafe(t *testing.T) {
	m := model.AggregatedMetrics{
		TotalRequests: 100, SuccessfulRequests: 100,
		AvgResponseTime: 50, P95ResponseTime: 80, RequestsPerSecond: 20,
	}
	s := Score(m)
	if s.Score != 100 || s.Label != model.SafetySafe {
		t.Errorf("score = %+v, want 100/SAFE", s)
	}
}

func TestScore_HighErrorRateIsDangerous(t *testing.T) {
	m := model.AggregatedMetrics{
		TotalRequests: 100, FailedRequests: 100, SuccessfulRequests: 0,
	}
	s := Score(m)
	if s.Label != model.SafetyDangerous {
		t.Errorf("label = %v, want DANGEROUS", s.Label)
	}
	if s.Score < 0 || s.Score > 100 {
		t.Errorf("score out of clamp range: %d", s.Score)
	}
}

func TestScore_LowThroughputFlatPenalty(t *testing.T) {
	m := model.AggregatedMetrics{TotalRequests: 1, SuccessfulRequests: 1, RequestsPerSecond: 0.5}
	s := Score(m)
	if s.Score != 95 {
		t.Errorf("score = %d, want 95 (flat -5 throughput penalty)", s.Score)
	}
}

func TestScore_ZeroThroughputNoPenalty(t *testing.T) {
	m := model.AggregatedMetrics{TotalRequests: 1, SuccessfulRequests: 1, RequestsPerSecond: 0}
	s := Score(m)
	if s.Score != 100 {
		t.Errorf("score = %d, want 100 (rps=0 means no requests completed, not penalized)", s.Score)
	}
}

func TestScore_ClampedToZero(t *testing.T) {
	// Penalties: HTTP errors 40 + timeouts 30 + p95 25 + avg 10 + rps 5 = 110.
	m := model.AggregatedMetrics{
		TotalRequests: 100, FailedRequests: 100, TimeoutCount: 25, TimeoutRatePercentage: 25,
		AvgResponseTime: 10000, P95ResponseTime: 10000, RequestsPerSecond: 0.5,
	}
	s := Score(m)
	if s.Score != 0 {
		t.Errorf("score should be clamped to 0, got %d", s.Score)
	}
}
