// Package config defines the headless driver's configuration surface:
// target, load shape, thresholds, and tracing options.
package config

import (
	"fmt"
	"strings"

	"github.com/torosent/loadsentinel/internal/model"
)

// TracingConfig holds the ambient OpenTelemetry settings. Propagate is a
// tri-state override: nil means "default to the endpoint's enabled state",
// a non-nil value pins propagation on or off regardless of that state.
type TracingConfig struct {
	Endpoint    string
	ServiceName string
	Protocol    string // "grpc" or "http"
	Insecure    bool
	SampleRate  float64
	Propagate   *bool
}

// Enabled always reports true. Whether spans are actually exported is
// decided by tracing.Init, which resolves the endpoint from Endpoint or,
// when that is empty, the OTEL_EXPORTER_OTLP_ENDPOINT env var.
func (c TracingConfig) Enabled() bool {
	return true // tracing.Init resolves the real endpoint from cfg or env
}

// ShouldPropagate reports whether outgoing requests should carry W3C
// trace-context headers: explicit Propagate wins, otherwise it defaults
// to whether an export endpoint is configured at all.
func (c TracingConfig) ShouldPropagate() bool {
	if c.Propagate != nil {
		return *c.Propagate
	}
	return c.Endpoint != ""
}

// Config is the full set of knobs for one headless test run.
type Config struct {
	TargetURL        string
	Method           string
	Concurrency      int
	DurationSeconds  int
	TimeoutMs        int

	Pattern              string
	TargetRPS            float64
	RampUpSeconds        int
	SpikeConcurrency     int
	SpikeDurationSeconds int

	MaxErrorRatePercent   float64
	HasMaxErrorRate       bool
	MaxP95LatencyMs       float64
	HasMaxP95Latency      bool
	MinSuccessRatePercent float64
	HasMinSuccessRate     bool

	JSONOutput bool

	Tracing TracingConfig
}

// ValidationError collects every problem found while validating a Config,
// mirroring the teacher's issues-slice-plus-typed-error idiom.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Issues, "; "))
}

// Validate clamps the numeric fields to the spec §6 config limits, fills in
// the default method and pattern, and returns a *ValidationError describing
// every remaining problem (missing target, bad method, bad pattern
// parameters). Out-of-range numbers are clamped, not reported.
func (c *Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "target URL is required")
	}

	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = string(model.MethodGET)
	}
	if c.Method != string(model.MethodGET) && c.Method != string(model.MethodPOST) {
		issues = append(issues, fmt.Sprintf("method must be GET or POST, got %q", c.Method))
	}

	if c.Concurrency < 1 {
		c.Concurrency = 1
	} else if c.Concurrency > 100 {
		c.Concurrency = 100
	}

	if c.DurationSeconds < 1 {
		c.DurationSeconds = 1
	} else if c.DurationSeconds > 300 {
		c.DurationSeconds = 300
	}

	if c.TimeoutMs < 1000 {
		c.TimeoutMs = 1000
	} else if c.TimeoutMs > 60000 {
		c.TimeoutMs = 60000
	}

	switch model.PatternType(c.Pattern) {
	case "", model.PatternFixedConcurrency:
		c.Pattern = string(model.PatternFixedConcurrency)
	case model.PatternFixedRPS:
		if c.TargetRPS < 1 {
			issues = append(issues, "fixed_rps pattern requires targetRps >= 1")
		}
	case model.PatternRampUp:
		if c.RampUpSeconds < 1 || c.RampUpSeconds > c.DurationSeconds {
			issues = append(issues, "ramp_up pattern requires 1 <= rampUpSeconds <= durationSeconds")
		}
	case model.PatternSpike:
		if c.SpikeConcurrency < c.Concurrency {
			issues = append(issues, "spike pattern requires spikeConcurrency >= concurrency")
		}
		if c.SpikeDurationSeconds < 1 || c.SpikeDurationSeconds > c.DurationSeconds {
			issues = append(issues, "spike pattern requires 1 <= spikeDurationSeconds <= durationSeconds")
		}
	default:
		issues = append(issues, fmt.Sprintf("unknown pattern %q", c.Pattern))
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// ToTestConfig converts the flat CLI config into the engine's TestConfig.
func (c *Config) ToTestConfig() model.TestConfig {
	tc := model.TestConfig{
		TargetURL:        c.TargetURL,
		Method:           model.Method(c.Method),
		ConcurrentUsers:  c.Concurrency,
		DurationSeconds:  c.DurationSeconds,
		RequestTimeoutMs: c.TimeoutMs,
	}

	if c.Pattern != "" {
		tc.Pattern = &model.Pattern{
			Type:                 model.PatternType(c.Pattern),
			TargetRPS:            c.TargetRPS,
			RampUpSeconds:        c.RampUpSeconds,
			SpikeConcurrency:     c.SpikeConcurrency,
			SpikeDurationSeconds: c.SpikeDurationSeconds,
		}
	}

	if c.HasMaxErrorRate || c.HasMaxP95Latency || c.HasMinSuccessRate {
		th := &model.Thresholds{}
		if c.HasMaxErrorRate {
			v := c.MaxErrorRatePercent
			th.MaxErrorRatePercent = &v
		}
		if c.HasMaxP95Latency {
			v := c.MaxP95LatencyMs
			th.MaxP95LatencyMs = &v
		}
		if c.HasMinSuccessRate {
			v := c.MinSuccessRatePercent
			th.MinSuccessRatePercent = &v
		}
		tc.Thresholds = th
	}

	return tc
}
