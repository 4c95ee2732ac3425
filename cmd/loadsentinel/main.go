// Command loadsentinel is the headless driver: it loads configuration,
// starts one load test, polls it to completion, prints a report, and
// maps the threshold verdict to a process exit code.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/torosent/loadsentinel/internal/config"
	"github.com/torosent/loadsentinel/internal/engine"
	"github.com/torosent/loadsentinel/internal/model"
	"github.com/torosent/loadsentinel/internal/output"
	"github.com/torosent/loadsentinel/internal/tracing"
)

// outerCap bounds how long the driver waits for a test; the engine itself
// has no external cancellation API (spec §5).
const outerCap = 320 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return 0
		}
		fmt.Fprintln(os.Stderr, "loadsentinel:", err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), outerCap)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loadsentinel: tracing init:", err)
		return 2
	}
	defer provider.Shutdown(context.Background())

	eng := engine.New(
		engine.WithTracer(provider.Tracer(), cfg.Tracing.ShouldPropagate()),
	)

	id, err := eng.StartLoadTest(cfg.ToTestConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, "loadsentinel: start test:", err)
		return 2
	}

	reporter := output.NewProgressReporter(os.Stderr, time.Second, func() (model.TestState, bool) {
		return eng.GetTest(id)
	})
	reporter.Start()

	state := pollUntilDone(ctx, eng, id)
	reporter.Stop()
	fmt.Fprintln(os.Stderr)

	if cfg.JSONOutput {
		_ = output.PrintJSONReport(os.Stdout, state)
	} else {
		output.PrintReport(os.Stdout, state)
	}
	if state.Status == model.StatusRunning {
		fmt.Fprintln(os.Stderr, "loadsentinel: test did not finish within the outer time cap")
	} else if state.Status == model.StatusFailed {
		fmt.Fprintln(os.Stderr, "loadsentinel: test failed due to an internal engine fault")
	}

	return exitCode(state)
}

func pollUntilDone(ctx context.Context, eng *engine.Engine, id string) model.TestState {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		state, ok := eng.GetTest(id)
		if ok && state.Status != model.StatusRunning {
			return state
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return state
		}
	}
}

// exitCode maps a finished test's threshold verdict to the spec §6 exit
// codes. A test that never reached `completed` (an engine fault, or the
// outer cap expiring while it was still running) has no verdict worth
// trusting and always exits 2, regardless of its stale ThresholdVerdict.
func exitCode(state model.TestState) int {
	if state.Status != model.StatusCompleted {
		return 2
	}
	switch state.ThresholdVerdict {
	case model.VerdictPass:
		return 0
	case model.VerdictDegraded:
		return 1
	case model.VerdictFail:
		return 2
	default:
		return 2
	}
}
