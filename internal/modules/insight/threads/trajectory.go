package threads

import "github.com/yungbote/fathom-backend/internal/types"

const (
	volatileVariance = 0.04
	trendDelta       = 0.1
	trendWindow      = 3
)

// ClassifyTrajectory reads a sentiment history (oldest first). Volatility
// is checked first on the last three values; a trend needs two full
// three-value windows to compare, otherwise the thread reads as stable.
func ClassifyTrajectory(history []float64) string {
	n := len(history)
	if n < trendWindow {
		return types.TrajectoryStable
	}
	last := history[n-trendWindow:]
	if variance(last) > volatileVariance {
		return types.TrajectoryVolatile
	}
	if n < 2*trendWindow {
		return types.TrajectoryStable
	}
	prev := history[n-2*trendWindow : n-trendWindow]
	delta := mean(last) - mean(prev)
	switch {
	case delta > trendDelta:
		return types.TrajectoryImproving
	case delta < -trendDelta:
		return types.TrajectoryDeclining
	default:
		return types.TrajectoryStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return sq / float64(len(values))
}
