package baseline

import (
	"math"
	"sort"
	"time"

	"github.com/yungbote/fathom-backend/internal/types"
)

// Sample is one dated observation of a metric.
type Sample struct {
	Day   time.Time
	Value float64
}

// ComputeStats summarizes a metric series. NaN and infinite values are
// filtered first; if nothing survives, the result is nil so callers treat
// the metric as unknown rather than zero.
func ComputeStats(samples []Sample) *types.MetricStats {
	clean := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			continue
		}
		clean = append(clean, s)
	}
	if len(clean) == 0 {
		return nil
	}
	sort.Slice(clean, func(i, j int) bool { return clean[i].Day.Before(clean[j].Day) })

	values := make([]float64, len(clean))
	var sum float64
	for i, s := range clean {
		values[i] = s.Value
		sum += s.Value
	}
	n := float64(len(values))
	mean := sum / n

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / n)

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return &types.MetricStats{
		Mean:        mean,
		StdDev:      stddev,
		Min:         sorted[0],
		Max:         sorted[len(sorted)-1],
		P25:         percentile(sorted, 0.25),
		P50:         percentile(sorted, 0.50),
		P75:         percentile(sorted, 0.75),
		TrendPerDay: trendPerDay(clean),
		SampleSize:  len(values),
	}
}

// percentile interpolates linearly between closest ranks of a sorted slice.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := q * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// trendPerDay compares the mean of the most recent up-to-7 samples against
// the mean of the earliest up-to-7, normalized by the day span.
func trendPerDay(chronological []Sample) float64 {
	n := len(chronological)
	if n < 2 {
		return 0
	}
	window := 7
	if window > n {
		window = n
	}
	var firstSum, lastSum float64
	for i := 0; i < window; i++ {
		firstSum += chronological[i].Value
		lastSum += chronological[n-window+i].Value
	}
	spanDays := chronological[n-1].Day.Sub(chronological[0].Day).Hours() / 24
	if spanDays <= 0 {
		return 0
	}
	return (lastSum/float64(window) - firstSum/float64(window)) / spanDays
}
