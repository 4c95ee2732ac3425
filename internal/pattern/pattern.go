// Package pattern implements the load-shape pure functions of spec §4.3:
// effective concurrency c(t), per-worker inter-request delay, and the
// pattern-preview sampler of spec §6.
package pattern

import (
	"math"

	"github.com/torosent/loadsentinel/internal/model"
)

// ConcurrencyAt returns c(t) for elapsed time elapsedMs into a test of
// durationSec seconds with base concurrency n.
func ConcurrencyAt(p *model.Pattern, elapsedMs int64, durationSec int, n int) int {
	if n < 1 {
		n = 1
	}
	if p == nil {
		return n
	}
	tSec := float64(elapsedMs) / 1000.0
	switch p.Type {
	case model.PatternRampUp:
		r := p.RampUpSeconds
		if r <= 0 {
			return n
		}
		if tSec >= float64(r) {
			return n
		}
		c := int(math.Floor(float64(n) * tSec / float64(r)))
		if c < 1 {
			c = 1
		}
		return c
	case model.PatternSpike:
		s := p.SpikeConcurrency
		delta := p.SpikeDurationSeconds
		if s <= n || delta <= 0 {
			return n
		}
		start := float64(durationSec - delta)
		if start < 0 {
			start = 0
		}
		if tSec >= start && tSec < start+float64(delta) {
			return s
		}
		return n
	default: // fixed_concurrency, fixed_rps
		return n
	}
}

// DelayMs returns the inter-request delay a single worker should wait
// between its own requests under fixed_rps; zero for every other pattern.
func DelayMs(p *model.Pattern, n int) float64 {
	if p == nil || p.Type != model.PatternFixedRPS {
		return 0
	}
	if p.TargetRPS <= 0 || n < 1 {
		return 0
	}
	return (1000.0 / p.TargetRPS) * float64(n)
}

// Point is one sample in a pattern preview.
type Point struct {
	TimeSec     int
	Concurrency int
}

// Preview samples ConcurrencyAt at step = max(1, floor(D/50)) seconds from
// t=0 to t=D inclusive, always including a final point at t=D.
func Preview(p *model.Pattern, durationSec int, n int) []Point {
	step := durationSec / 50
	if step < 1 {
		step = 1
	}
	var points []Point
	for t := 0; t <= durationSec; t += step {
		points = append(points, Point{
			TimeSec:     t,
			Concurrency: ConcurrencyAt(p, int64(t)*1000, durationSec, n),
		})
	}
	if len(points) == 0 || points[len(points)-1].TimeSec != durationSec {
		points = append(points, Point{
			TimeSec:     durationSec,
			Concurrency: ConcurrencyAt(p, int64(durationSec)*1000, durationSec, n),
		})
	}
	return points
}

// MaxConcurrency returns the largest concurrency the pattern can reach,
// used to bound worker-cohort sizing for spike patterns.
func MaxConcurrency(p *model.Pattern, n int) int {
	if p != nil && p.Type == model.PatternSpike && p.SpikeConcurrency > n {
		return p.SpikeConcurrency
	}
	return n
}
