// Package threshold implements the verdict rules of spec §4.5: mapping
// aggregated metrics and optional user thresholds to a PASS/DEGRADED/FAIL
// verdict, reasons, and the auto-stop predicate.
package threshold

import "github.com/torosent/loadsentinel/internal/model"

// Evaluate compares metrics m against thresholds h. A nil h yields an
// unconditional PASS with no reasons.
func Evaluate(m model.AggregatedMetrics, h *model.Thresholds) model.ThresholdEvaluation {
	if h == nil {
		return model.ThresholdEvaluation{Verdict: model.VerdictPass}
	}

	verdict := model.VerdictPass
	var reasons []string

	if h.MaxErrorRatePercent != nil && m.ErrorRatePercentage > *h.MaxErrorRatePercent {
		reasons = append(reasons, "maxErrorRatePercent")
		verdict = model.VerdictFail
	}

	if h.MinSuccessRatePercent != nil {
		successRate := 100.0
		if m.TotalRequests > 0 {
			successRate = 100 * float64(m.SuccessfulRequests) / float64(m.TotalRequests)
		}
		if successRate < *h.MinSuccessRatePercent {
			reasons = append(reasons, "minSuccessRatePercent")
			verdict = model.VerdictFail
		}
	}

	if h.MaxP95LatencyMs != nil && m.P95ResponseTime > *h.MaxP95LatencyMs {
		reasons = append(reasons, "maxP95LatencyMs")
		if verdict == model.VerdictPass {
			verdict = model.VerdictDegraded
		}
		// FAIL stays FAIL; DEGRADED stays DEGRADED if already set by P95 alone.
	}

	return model.ThresholdEvaluation{
		Verdict:         verdict,
		Reasons:         reasons,
		ViolatedJustNow: len(reasons) > 0,
	}
}

// ShouldAutoStop reports whether the engine should halt the run: verdict
// is FAIL and at least one reason is a critical one. A FAIL that can only
// be caused by P95 alone never reaches this state (P95 alone produces at
// most DEGRADED), but the check is defensive regardless.
func ShouldAutoStop(eval model.ThresholdEvaluation) bool {
	if eval.Verdict != model.VerdictFail {
		return false
	}
	for _, r := range eval.Reasons {
		if r == "maxErrorRatePercent" || r == "minSuccessRatePercent" {
			return true
		}
	}
	return false
}
