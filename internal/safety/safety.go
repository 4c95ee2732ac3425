// Package safety implements the post-run safety scorer of spec §4.6.
package safety

import (
	"fmt"
	"math"
	"strings"

	"github.com/torosent/loadsentinel/internal/model"
)

// Score computes the weighted-penalty safety score for a completed test's
// final metrics.
func Score(m model.AggregatedMetrics) model.SafetyScore {
	score := 100.0
	var explanations []string

	if m.TotalRequests > 0 {
		httpErrorRate := 100 * float64(m.FailedRequests-m.TimeoutCount) / float64(m.TotalRequests)
		if p := math.Min(httpErrorRate*0.6, 40); p > 0 {
			score -= p
			explanations = append(explanations, fmt.Sprintf("HTTP error rate %.2f%% (-%.1f)", httpErrorRate, p))
		}
	}

	if p := math.Min(m.TimeoutRatePercentage*1.2, 30); p > 0 {
		score -= p
		explanations = append(explanations, fmt.Sprintf("timeout rate %.2f%% (-%.1f)", m.TimeoutRatePercentage, p))
	}

	if m.P95ResponseTime > 500 {
		p := math.Min((m.P95ResponseTime-500)/100*3, 25)
		score -= p
		explanations = append(explanations, fmt.Sprintf("p95 latency %.2fms over 500ms (-%.1f)", m.P95ResponseTime, p))
	}

	if m.AvgResponseTime > 300 {
		p := math.Min((m.AvgResponseTime-300)/100*1, 10)
		score -= p
		explanations = append(explanations, fmt.Sprintf("avg latency %.2fms over 300ms (-%.1f)", m.AvgResponseTime, p))
	}

	if m.RequestsPerSecond > 0 && m.RequestsPerSecond < 1 {
		score -= 5
		explanations = append(explanations, "throughput below 1 rps (-5.0)")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	rounded := int(math.Round(score))

	var label model.SafetyLabel
	switch {
	case rounded >= 80:
		label = model.SafetySafe
	case rounded >= 50:
		label = model.SafetyWarning
	default:
		label = model.SafetyDangerous
	}

	explanation := "no penalties applied"
	if len(explanations) > 0 {
		explanation = strings.Join(explanations, "; ")
	}

	return model.SafetyScore{
		Score:       rounded,
		Label:       label,
		Explanation: explanation,
	}
}
