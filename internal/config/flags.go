package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// configureFlags registers every flag the headless driver accepts.
func configureFlags(flags *pflag.FlagSet) {
	flags.String("target", "", "target URL to load test")
	flags.String("method", "GET", "HTTP method (GET or POST)")
	flags.Int("concurrency", 10, "base concurrency (1-100)")
	flags.Int("duration", 30, "test duration in seconds (1-300)")
	flags.Int("timeout", 5000, "per-request timeout in ms (1000-60000)")

	flags.String("pattern", "fixed_concurrency", "load pattern: fixed_concurrency, fixed_rps, ramp_up, spike")
	flags.Float64("target-rps", 0, "target requests/sec for fixed_rps pattern")
	flags.Int("ramp-up-seconds", 0, "ramp-up window in seconds for ramp_up pattern")
	flags.Int("spike-concurrency", 0, "peak concurrency for spike pattern")
	flags.Int("spike-duration-seconds", 0, "spike window in seconds for spike pattern")

	flags.Float64("max-error-rate", 0, "fail if error rate exceeds this percent")
	flags.Float64("max-p95-latency", 0, "degrade the verdict if p95 latency exceeds this many ms")
	flags.Float64("min-success-rate", 0, "fail if success rate falls below this percent")

	flags.Bool("json", false, "print the final report as JSON")

	flags.String("otlp-endpoint", "", "OTLP trace exporter endpoint (empty disables tracing export)")
	flags.String("otlp-protocol", "grpc", "OTLP exporter protocol: grpc or http")
	flags.Bool("otlp-insecure", true, "use an insecure OTLP connection")
	flags.Float64("trace-sample-rate", 1.0, "OTel trace sample rate (0.0-1.0)")
	flags.Bool("trace-propagate", false, "inject W3C trace-context headers into outgoing requests")

	flags.String("config", "", "path to a YAML config file")
}

// applyFlagOverrides copies every flag the caller actually set onto cfg,
// matching the teacher's fs.Changed(...) idiom so config-file values are
// not clobbered by flag defaults.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		cfg.TargetURL, _ = fs.GetString("target")
	}
	if fs.Changed("method") {
		cfg.Method, _ = fs.GetString("method")
	}
	if fs.Changed("concurrency") {
		cfg.Concurrency, _ = fs.GetInt("concurrency")
	}
	if fs.Changed("duration") {
		cfg.DurationSeconds, _ = fs.GetInt("duration")
	}
	if fs.Changed("timeout") {
		cfg.TimeoutMs, _ = fs.GetInt("timeout")
	}
	if fs.Changed("pattern") {
		cfg.Pattern, _ = fs.GetString("pattern")
	}
	if fs.Changed("target-rps") {
		cfg.TargetRPS, _ = fs.GetFloat64("target-rps")
	}
	if fs.Changed("ramp-up-seconds") {
		cfg.RampUpSeconds, _ = fs.GetInt("ramp-up-seconds")
	}
	if fs.Changed("spike-concurrency") {
		cfg.SpikeConcurrency, _ = fs.GetInt("spike-concurrency")
	}
	if fs.Changed("spike-duration-seconds") {
		cfg.SpikeDurationSeconds, _ = fs.GetInt("spike-duration-seconds")
	}
	if fs.Changed("max-error-rate") {
		cfg.MaxErrorRatePercent, _ = fs.GetFloat64("max-error-rate")
		cfg.HasMaxErrorRate = true
	}
	if fs.Changed("max-p95-latency") {
		cfg.MaxP95LatencyMs, _ = fs.GetFloat64("max-p95-latency")
		cfg.HasMaxP95Latency = true
	}
	if fs.Changed("min-success-rate") {
		cfg.MinSuccessRatePercent, _ = fs.GetFloat64("min-success-rate")
		cfg.HasMinSuccessRate = true
	}
	if fs.Changed("json") {
		cfg.JSONOutput, _ = fs.GetBool("json")
	}
	if fs.Changed("otlp-endpoint") {
		cfg.Tracing.Endpoint, _ = fs.GetString("otlp-endpoint")
	}
	if fs.Changed("otlp-protocol") {
		cfg.Tracing.Protocol, _ = fs.GetString("otlp-protocol")
	}
	if fs.Changed("otlp-insecure") {
		cfg.Tracing.Insecure, _ = fs.GetBool("otlp-insecure")
	}
	if fs.Changed("trace-sample-rate") {
		cfg.Tracing.SampleRate, _ = fs.GetFloat64("trace-sample-rate")
	}
	if fs.Changed("trace-propagate") {
		v, _ := fs.GetBool("trace-propagate")
		cfg.Tracing.Propagate = &v
	}

	protocol := strings.ToLower(cfg.Tracing.Protocol)
	if protocol != "" && protocol != "grpc" && protocol != "http" {
		return fmt.Errorf("otlp-protocol must be \"grpc\" or \"http\", got %q", cfg.Tracing.Protocol)
	}
	return nil
}
