// Package aggregator implements the metrics pipeline of spec §4.4: exact
// pure functions over a RequestResult slice, plus a cheap live estimator
// used only to annotate in-flight spans.
package aggregator

import (
	"math"
	"sort"

	"github.com/torosent/loadsentinel/internal/model"
)

// ComputeMetrics computes exact summary statistics over results. It is
// pure and idempotent: called twice on the same input it returns an
// identical value.
func ComputeMetrics(results []model.RequestResult, durationSeconds float64) model.AggregatedMetrics {
	total := len(results)
	m := model.AggregatedMetrics{TotalRequests: total}
	if total == 0 {
		return m
	}

	successLatencies := make([]float64, 0, total)
	var timeoutCount int
	var successful int
	for _, r := range results {
		if r.Success {
			successful++
			successLatencies = append(successLatencies, r.ResponseTimeMs)
		} else if r.ErrorTag == "timeout" {
			timeoutCount++
		}
	}
	failed := total - successful

	m.SuccessfulRequests = successful
	m.FailedRequests = failed
	m.TimeoutCount = timeoutCount
	m.ErrorRatePercentage = round2(100 * float64(failed) / float64(total))
	m.TimeoutRatePercentage = round2(100 * float64(timeoutCount) / float64(total))
	if durationSeconds > 0 {
		m.RequestsPerSecond = round2(float64(total) / durationSeconds)
	}

	sort.Float64s(successLatencies)
	l := len(successLatencies)
	if l == 0 {
		return m
	}
	sum := 0.0
	for _, v := range successLatencies {
		sum += v
	}
	m.MinResponseTime = round2(successLatencies[0])
	m.MaxResponseTime = round2(successLatencies[l-1])
	m.AvgResponseTime = round2(sum / float64(l))
	m.P95ResponseTime = round2(percentile(successLatencies, 0.95))
	m.P99ResponseTime = round2(percentile(successLatencies, 0.99))
	return m
}

// percentile performs linear interpolation at fractional rank (L-1)*p.
func percentile(sorted []float64, p float64) float64 {
	l := len(sorted)
	if l == 0 {
		return 0
	}
	if l == 1 {
		return sorted[0]
	}
	rank := float64(l-1) * p
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BuildTimeSeries partitions results into 1-second buckets relative to
// startedAt, in ascending bucket order. Empty buckets are omitted.
func BuildTimeSeries(results []model.RequestResult, startedAt int64) []model.TimeSeriesPoint {
	if len(results) == 0 {
		return nil
	}
	type bucketAgg struct {
		sum          float64
		count        int
		successCount int
		failCount    int
	}
	buckets := make(map[int64]*bucketAgg)
	for _, r := range results {
		idx := (r.TimestampMs - startedAt) / 1000
		b, ok := buckets[idx]
		if !ok {
			b = &bucketAgg{}
			buckets[idx] = b
		}
		b.sum += r.ResponseTimeMs
		b.count++
		if r.Success {
			b.successCount++
		} else {
			b.failCount++
		}
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	points := make([]model.TimeSeriesPoint, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		total := b.successCount + b.failCount
		errorRate := 0.0
		if total > 0 {
			errorRate = round2(100 * float64(b.failCount) / float64(total))
		}
		points = append(points, model.TimeSeriesPoint{
			Time:         startedAt + k*1000,
			ResponseTime: round2(b.sum / float64(b.count)),
			ErrorRate:    errorRate,
			SuccessCount: b.successCount,
			FailCount:    b.failCount,
		})
	}
	return points
}
