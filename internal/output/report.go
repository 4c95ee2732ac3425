// Package output renders a finished test's state as a human-readable
// report or JSON, and ticks a one-line progress summary while a test runs.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/torosent/loadsentinel/internal/model"
)

// PrintReport writes a text summary of state to w.
func PrintReport(w io.Writer, state model.TestState) {
	m := state.Metrics
	fmt.Fprintf(w, "Test %s (%s)\n", state.ID, state.Status)
	fmt.Fprintf(w, "  target:      %s %s\n", state.Config.Method, state.Config.TargetURL)
	fmt.Fprintf(w, "  requests:    %d total, %d successful, %d failed\n", m.TotalRequests, m.SuccessfulRequests, m.FailedRequests)
	fmt.Fprintf(w, "  error rate:  %.2f%%\n", m.ErrorRatePercentage)
	fmt.Fprintf(w, "  throughput:  %.2f req/s\n", m.RequestsPerSecond)
	fmt.Fprintf(w, "  latency ms:  min=%.2f avg=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		m.MinResponseTime, m.AvgResponseTime, m.P95ResponseTime, m.P99ResponseTime, m.MaxResponseTime)
	fmt.Fprintf(w, "  timeouts:    %d (%.2f%%)\n", m.TimeoutCount, m.TimeoutRatePercentage)
	fmt.Fprintf(w, "  legacy:      %s\n", state.LegacyVerdict)
	fmt.Fprintf(w, "  threshold:   %s %v\n", state.ThresholdVerdict, state.VerdictReasons)
	if state.SafetyScore != nil {
		fmt.Fprintf(w, "  safety:      %d (%s) - %s\n", state.SafetyScore.Score, state.SafetyScore.Label, state.SafetyScore.Explanation)
	}
}

// PrintJSONReport writes state as indented JSON to w.
func PrintJSONReport(w io.Writer, state model.TestState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}
