package config

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrHelpRequested is returned by Load when the caller passed --help.
var ErrHelpRequested = errors.New("help requested")

// Loader parses CLI flags and an optional config file into a Config.
type Loader struct{}

// NewLoader returns a Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses args (excluding argv[0]) into a validated Config. A config
// file loaded through viper is applied first, then overridden by any
// flags the caller explicitly set, matching the teacher's merge order.
func (l *Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	cmd.SetArgs(args)

	var cfg *Config
	var runErr error
	cmd.RunE = func(c *cobra.Command, _ []string) error {
		built, err := buildConfig(c.Flags())
		cfg = built
		runErr = err
		return err
	}

	if err := cmd.Execute(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelpRequested
		}
		return nil, err
	}
	if runErr != nil {
		return nil, runErr
	}
	return cfg, nil
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "loadsentinel",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	configureFlags(cmd.Flags())
	return cmd
}

func buildConfig(flags *pflag.FlagSet) (*Config, error) {
	// Start from the defaults configureFlags advertises; the config file and
	// explicitly set flags then override them.
	cfg := &Config{
		Method:          "GET",
		Concurrency:     10,
		DurationSeconds: 30,
		TimeoutMs:       5000,
		Pattern:         "fixed_concurrency",
		Tracing: TracingConfig{
			Protocol:   "grpc",
			Insecure:   true,
			SampleRate: 1.0,
		},
	}

	configFile, _ := flags.GetString("config")
	if configFile != "" {
		v := viper.New()
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		applyConfigSettings(cfg, v)
	}

	if err := applyFlagOverrides(cfg, flags); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyConfigSettings(cfg *Config, v *viper.Viper) {
	if v.IsSet("target") {
		cfg.TargetURL = v.GetString("target")
	}
	if v.IsSet("method") {
		cfg.Method = v.GetString("method")
	}
	if v.IsSet("concurrency") {
		cfg.Concurrency = v.GetInt("concurrency")
	}
	if v.IsSet("duration") {
		cfg.DurationSeconds = v.GetInt("duration")
	}
	if v.IsSet("timeout") {
		cfg.TimeoutMs = v.GetInt("timeout")
	}
	if v.IsSet("pattern") {
		cfg.Pattern = v.GetString("pattern")
	}
	if v.IsSet("target_rps") {
		cfg.TargetRPS = v.GetFloat64("target_rps")
	}
	if v.IsSet("ramp_up_seconds") {
		cfg.RampUpSeconds = v.GetInt("ramp_up_seconds")
	}
	if v.IsSet("spike_concurrency") {
		cfg.SpikeConcurrency = v.GetInt("spike_concurrency")
	}
	if v.IsSet("spike_duration_seconds") {
		cfg.SpikeDurationSeconds = v.GetInt("spike_duration_seconds")
	}
	if v.IsSet("thresholds.max_error_rate_percent") {
		cfg.MaxErrorRatePercent = v.GetFloat64("thresholds.max_error_rate_percent")
		cfg.HasMaxErrorRate = true
	}
	if v.IsSet("thresholds.max_p95_latency_ms") {
		cfg.MaxP95LatencyMs = v.GetFloat64("thresholds.max_p95_latency_ms")
		cfg.HasMaxP95Latency = true
	}
	if v.IsSet("thresholds.min_success_rate_percent") {
		cfg.MinSuccessRatePercent = v.GetFloat64("thresholds.min_success_rate_percent")
		cfg.HasMinSuccessRate = true
	}
	if v.IsSet("json") {
		cfg.JSONOutput = v.GetBool("json")
	}
	if v.IsSet("tracing.endpoint") {
		cfg.Tracing.Endpoint = v.GetString("tracing.endpoint")
	}
	if v.IsSet("tracing.protocol") {
		cfg.Tracing.Protocol = v.GetString("tracing.protocol")
	}
	if v.IsSet("tracing.insecure") {
		cfg.Tracing.Insecure = v.GetBool("tracing.insecure")
	}
	if v.IsSet("tracing.sample_rate") {
		cfg.Tracing.SampleRate = v.GetFloat64("tracing.sample_rate")
	}
	if v.IsSet("tracing.propagate") {
		val := v.GetBool("tracing.propagate")
		cfg.Tracing.Propagate = &val
	}
}
