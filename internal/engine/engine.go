// Package engine implements the load-test lifecycle of spec §4.7: id
// generation, base+spike cohort spawning, the per-worker gating loop,
// mutex-guarded aggregation, and finalization.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/torosent/loadsentinel/internal/aggregator"
	"github.com/torosent/loadsentinel/internal/clock"
	"github.com/torosent/loadsentinel/internal/history"
	"github.com/torosent/loadsentinel/internal/httprequester"
	"github.com/torosent/loadsentinel/internal/idgen"
	"github.com/torosent/loadsentinel/internal/model"
	"github.com/torosent/loadsentinel/internal/pattern"
	"github.com/torosent/loadsentinel/internal/ratelimit"
	"github.com/torosent/loadsentinel/internal/safety"
	"github.com/torosent/loadsentinel/internal/store"
	"github.com/torosent/loadsentinel/internal/threshold"
)

const patternMaskSleep = 100 * time.Millisecond

// RequesterFactory builds a Requester for one test's configuration. Tests
// inject a stub factory; production wires httprequester.New.
type RequesterFactory func(model.TestConfig) httprequester.Requester

// Engine owns test execution: the store, history, and process-wide rate
// limiter it schedules requests through.
type Engine struct {
	store     *store.Store
	history   *history.Ring
	limiter   *ratelimit.Limiter
	clk       clock.Clock
	tracer    trace.Tracer
	propagate bool

	newRequester RequesterFactory

	mu   sync.Mutex
	runs map[string]*atomic.Bool // per-test stop flags, keyed by test id
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithClock overrides the clock, for deterministic tests.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clk = c }
}

// WithTracer overrides the tracer used to annotate requests.
func WithTracer(t trace.Tracer, propagate bool) Option {
	return func(e *Engine) {
		e.tracer = t
		e.propagate = propagate
	}
}

// WithRequesterFactory overrides how per-test Requesters are built,
// letting tests substitute a stub Requester for the real HTTP client.
func WithRequesterFactory(f RequesterFactory) Option {
	return func(e *Engine) { e.newRequester = f }
}

// New builds an Engine with its own store, history, and rate limiter.
func New(opts ...Option) *Engine {
	e := &Engine{
		store:   store.New(),
		history: history.New(),
		clk:     clock.Real{},
		tracer:  noop.NewTracerProvider().Tracer("loadsentinel"),
		runs:    make(map[string]*atomic.Bool),
	}
	for _, o := range opts {
		o(e)
	}
	e.limiter = ratelimit.NewWithClock(e.clk)
	if e.newRequester == nil {
		e.newRequester = func(cfg model.TestConfig) httprequester.Requester {
			return httprequester.New(cfg, e.tracer, e.propagate)
		}
	}
	return e
}

func clampConfig(cfg model.TestConfig) model.TestConfig {
	if cfg.ConcurrentUsers < 1 {
		cfg.ConcurrentUsers = 1
	} else if cfg.ConcurrentUsers > 100 {
		cfg.ConcurrentUsers = 100
	}
	if cfg.DurationSeconds < 1 {
		cfg.DurationSeconds = 1
	} else if cfg.DurationSeconds > 300 {
		cfg.DurationSeconds = 300
	}
	if cfg.RequestTimeoutMs < 1000 {
		cfg.RequestTimeoutMs = 1000
	} else if cfg.RequestTimeoutMs > 60000 {
		cfg.RequestTimeoutMs = 60000
	}
	return cfg
}

// StartLoadTest registers a new test and begins executing it in the
// background, returning its id synchronously.
func (e *Engine) StartLoadTest(cfg model.TestConfig) (string, error) {
	cfg = clampConfig(cfg)
	now := e.clk.Now()
	id := idgen.TestID(now)
	startedAt := now.UnixMilli()

	e.store.Set(id, model.TestState{
		ID:               id,
		Config:           cfg,
		Status:           model.StatusRunning,
		StartedAt:        startedAt,
		LegacyVerdict:    model.LegacyOK,
		ThresholdVerdict: model.VerdictPass,
	})

	stopFlag := &atomic.Bool{}
	e.mu.Lock()
	e.runs[id] = stopFlag
	e.mu.Unlock()

	go e.run(id, cfg, startedAt, stopFlag)

	return id, nil
}

func (e *Engine) run(id string, cfg model.TestConfig, startedAt int64, stopFlag *atomic.Bool) {
	defer func() {
		e.mu.Lock()
		delete(e.runs, id)
		e.mu.Unlock()
	}()

	n := cfg.ConcurrentUsers
	durationMs := int64(cfg.DurationSeconds) * 1000
	endTime := startedAt + durationMs
	requester := e.newRequester(cfg)

	g, gctx := errgroup.WithContext(context.Background())

	for i := 0; i < n; i++ {
		idx := i
		g.Go(func() error {
			return e.workerLoop(gctx, id, idx, cfg, startedAt, endTime, requester, stopFlag)
		})
	}

	if extra := pattern.MaxConcurrency(cfg.Pattern, n) - n; extra > 0 {
		offsetMs := durationMs - int64(cfg.Pattern.SpikeDurationSeconds)*1000
		if offsetMs < 0 {
			offsetMs = 0
		}
		spikeDelay := time.Duration(offsetMs) * time.Millisecond
		for i := 0; i < extra; i++ {
			idx := n + i
			g.Go(func() error {
				timer := time.NewTimer(spikeDelay)
				defer timer.Stop()
				select {
				case <-timer.C:
				case <-gctx.Done():
					return nil
				}
				return e.workerLoop(gctx, id, idx, cfg, startedAt, endTime, requester, stopFlag)
			})
		}
	}

	if err := g.Wait(); err != nil {
		e.markFailed(id)
		return
	}

	e.finalize(id)
}

func (e *Engine) workerLoop(
	ctx context.Context,
	id string,
	index int,
	cfg model.TestConfig,
	startedAt int64,
	endTime int64,
	requester httprequester.Requester,
	stopFlag *atomic.Bool,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %d panic: %v", index, r)
		}
	}()

	n := cfg.ConcurrentUsers
	for {
		if stopFlag.Load() || ctx.Err() != nil {
			return nil
		}
		now := e.clk.Now().UnixMilli()
		if now >= endTime {
			return nil
		}
		elapsed := now - startedAt
		c := pattern.ConcurrencyAt(cfg.Pattern, elapsed, cfg.DurationSeconds, n)
		if index >= c {
			if !sleepOrDone(ctx, patternMaskSleep) {
				return nil
			}
			continue
		}

		if d := pattern.DelayMs(cfg.Pattern, n); d > 0 {
			if !sleepOrDone(ctx, time.Duration(d)*time.Millisecond) {
				return nil
			}
		}

		if err := e.limiter.Admit(ctx); err != nil {
			return nil
		}

		result := requester.Do(ctx)
		e.recordResult(id, cfg, startedAt, result, stopFlag)

		if stopFlag.Load() {
			return nil
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) recordResult(id string, cfg model.TestConfig, startedAt int64, result model.RequestResult, stopFlag *atomic.Bool) {
	now := e.clk.Now().UnixMilli()
	e.store.Update(id, func(state *model.TestState) {
		if state.Status != model.StatusRunning {
			return
		}
		state.Results = append(state.Results, result)

		elapsedSec := float64(now-state.StartedAt) / 1000.0
		if elapsedSec <= 0 {
			elapsedSec = 0.001
		}
		state.Metrics = aggregator.ComputeMetrics(state.Results, elapsedSec)
		state.TimeSeries = aggregator.BuildTimeSeries(state.Results, state.StartedAt)
		state.LegacyVerdict = legacyVerdict(state.Metrics.ErrorRatePercentage)

		eval := threshold.Evaluate(state.Metrics, cfg.Thresholds)
		state.ThresholdVerdict = eval.Verdict
		state.VerdictReasons = eval.Reasons
		if eval.ViolatedJustNow && state.FirstViolationAt == nil {
			v := now
			state.FirstViolationAt = &v
		}
		if threshold.ShouldAutoStop(eval) {
			stopFlag.Store(true)
		}
	})
}

func legacyVerdict(errorRatePercentage float64) model.LegacyVerdict {
	switch {
	case errorRatePercentage > 60:
		return model.LegacyCritical
	case errorRatePercentage > 30:
		return model.LegacyUnstable
	default:
		return model.LegacyOK
	}
}

func (e *Engine) finalize(id string) {
	e.store.Update(id, func(state *model.TestState) {
		if state.Status != model.StatusRunning {
			return
		}
		completedAt := e.clk.Now().UnixMilli()
		state.Status = model.StatusCompleted
		state.CompletedAt = &completedAt

		elapsedSec := float64(completedAt-state.StartedAt) / 1000.0
		if elapsedSec <= 0 {
			elapsedSec = 0.001
		}
		state.Metrics = aggregator.ComputeMetrics(state.Results, elapsedSec)
		state.TimeSeries = aggregator.BuildTimeSeries(state.Results, state.StartedAt)

		score := safety.Score(state.Metrics)
		state.SafetyScore = &score
		state.LegacyVerdict = legacyVerdict(state.Metrics.ErrorRatePercentage)

		eval := threshold.Evaluate(state.Metrics, state.Config.Thresholds)
		state.ThresholdVerdict = eval.Verdict
		state.VerdictReasons = eval.Reasons
		if eval.ViolatedJustNow && state.FirstViolationAt == nil {
			v := completedAt
			state.FirstViolationAt = &v
		}
	})

	snapshot, ok := e.store.Get(id)
	if !ok || snapshot.CompletedAt == nil || snapshot.SafetyScore == nil {
		return
	}
	e.history.Add(model.HistoryRecord{
		ID:               snapshot.ID,
		Config:           snapshot.Config,
		Metrics:          snapshot.Metrics,
		SafetyScore:      *snapshot.SafetyScore,
		LegacyVerdict:    snapshot.LegacyVerdict,
		ThresholdVerdict: snapshot.ThresholdVerdict,
		VerdictReasons:   snapshot.VerdictReasons,
		FirstViolationAt: snapshot.FirstViolationAt,
		StartedAt:        snapshot.StartedAt,
		CompletedAt:      *snapshot.CompletedAt,
		TimeSeries:       snapshot.TimeSeries,
	})
}

func (e *Engine) markFailed(id string) {
	e.store.Update(id, func(state *model.TestState) {
		if state.Status != model.StatusRunning {
			return
		}
		completedAt := e.clk.Now().UnixMilli()
		state.Status = model.StatusFailed
		state.CompletedAt = &completedAt
	})
}

// GetTest returns a snapshot of the test state for id.
func (e *Engine) GetTest(id string) (model.TestState, bool) {
	return e.store.Get(id)
}

// GetHistory returns a most-recent-first copy of completed tests.
func (e *Engine) GetHistory() []model.HistoryRecord {
	return e.history.All()
}

// GetHistoryRecord looks up one history record by id.
func (e *Engine) GetHistoryRecord(id string) (model.HistoryRecord, bool) {
	return e.history.Get(id)
}

// GetHistoryRecords returns the records matching ids, in history order.
func (e *Engine) GetHistoryRecords(ids []string) []model.HistoryRecord {
	return e.history.GetMany(ids)
}
