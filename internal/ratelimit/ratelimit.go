// Package ratelimit implements the process-wide sliding-window admission
// cap described in spec §4.1: at most 500 accepted request starts in any
// rolling 1000ms window, with a 20ms backoff on rejection.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/torosent/loadsentinel/internal/clock"
)

const (
	windowDuration = 1000 * time.Millisecond
	maxAdmitted    = 500
	backoff        = 20 * time.Millisecond
)

// Limiter is a ring-buffer-backed sliding window counter. The naive
// list-shift eviction is O(n) per admission; a ring buffer keeps eviction
// to advancing a head index over already-expired slots.
type Limiter struct {
	mu    sync.Mutex
	clk   clock.Clock
	times []time.Time // ring buffer of admitted timestamps
	head  int         // index of oldest entry
	count int         // number of valid entries
}

// New returns a Limiter using the real clock.
func New() *Limiter {
	return NewWithClock(clock.Real{})
}

// NewWithClock returns a Limiter driven by clk, for deterministic tests.
func NewWithClock(clk clock.Clock) *Limiter {
	return &Limiter{
		clk:   clk,
		times: make([]time.Time, maxAdmitted),
	}
}

// TryAdmit evicts expired timestamps and admits now if the remaining
// count is below the cap. Returns whether admission succeeded.
func (l *Limiter) TryAdmit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clk.Now()
	cutoff := now.Add(-windowDuration)
	for l.count > 0 && l.times[l.head].Before(cutoff) {
		l.head = (l.head + 1) % len(l.times)
		l.count--
	}
	if l.count >= maxAdmitted {
		return false
	}
	tail := (l.head + l.count) % len(l.times)
	l.times[tail] = now
	l.count++
	return true
}

// Admit blocks, retrying with a 20ms backoff, until admission succeeds or
// ctx is cancelled.
func (l *Limiter) Admit(ctx context.Context) error {
	for {
		if l.TryAdmit() {
			return nil
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
