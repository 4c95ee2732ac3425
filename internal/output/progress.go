package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/loadsentinel/internal/model"
)

// ProgressReporter ticks a single-line live summary while a test runs,
// mirroring the teacher's internal/output.ProgressReporter.
type ProgressReporter struct {
	getState func() (model.TestState, bool)
	writer   io.Writer
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
	active   atomic.Bool
}

// NewProgressReporter polls getState every interval and writes a summary
// line to w until Stop is called.
func NewProgressReporter(w io.Writer, interval time.Duration, getState func() (model.TestState, bool)) *ProgressReporter {
	return &ProgressReporter{
		getState: getState,
		writer:   w,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins ticking in a background goroutine. A second call is a no-op.
func (p *ProgressReporter) Start() {
	if !p.active.CompareAndSwap(false, true) {
		return
	}
	p.ticker = time.NewTicker(p.interval)
	go p.run()
}

// Stop halts ticking.
func (p *ProgressReporter) Stop() {
	if !p.active.CompareAndSwap(true, false) {
		return
	}
	p.ticker.Stop()
	close(p.done)
}

func (p *ProgressReporter) run() {
	for {
		select {
		case <-p.ticker.C:
			p.printOnce()
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) printOnce() {
	state, ok := p.getState()
	if !ok {
		return
	}
	m := state.Metrics
	fmt.Fprintf(p.writer, "\r[%s] total=%d errRate=%.2f%% p95=%.2fms rps=%.2f",
		state.Status, m.TotalRequests, m.ErrorRatePercentage, m.P95ResponseTime, m.RequestsPerSecond)
}
