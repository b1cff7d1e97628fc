package baseline

import (
	"fmt"
	"math"

	"github.com/yungbote/fathom-backend/internal/types"
)

// Comparison statuses, ordered by severity.
const (
	StatusSignificantlyElevated  = "significantly_elevated"
	StatusElevated               = "elevated"
	StatusNormal                 = "normal"
	StatusDepressed              = "depressed"
	StatusSignificantlyDepressed = "significantly_depressed"
)

// Comparison places one current value against a personal baseline.
type Comparison struct {
	Metric         string  `json:"metric"`
	Current        float64 `json:"current"`
	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"`
	Z              float64 `json:"z"`
	Status         string  `json:"status"`
	Interpretation string  `json:"interpretation"`
}

// CompareToBaseline scores a current reading against the stored stats. The
// denominator is floored at 10% of the mean so near-constant histories do
// not turn trivial fluctuations into extreme z-scores. A missing baseline
// yields nil: unknown, never zero.
func CompareToBaseline(current float64, stats *types.MetricStats, metric string) *Comparison {
	if stats == nil || stats.SampleSize == 0 {
		return nil
	}
	denom := math.Max(stats.StdDev, math.Abs(stats.Mean)*0.1)
	if denom == 0 {
		return nil
	}
	z := (current - stats.Mean) / denom

	var status string
	switch {
	case z > 2:
		status = StatusSignificantlyElevated
	case z > 1:
		status = StatusElevated
	case z < -2:
		status = StatusSignificantlyDepressed
	case z < -1:
		status = StatusDepressed
	default:
		status = StatusNormal
	}

	return &Comparison{
		Metric:         metric,
		Current:        current,
		Mean:           stats.Mean,
		StdDev:         stats.StdDev,
		Z:              z,
		Status:         status,
		Interpretation: interpret(metric, status, current, stats.Mean),
	}
}

func interpret(metric, status string, current, mean float64) string {
	label := MetricLabel(metric)
	switch status {
	case StatusSignificantlyElevated:
		return fmt.Sprintf("%s at %.1f is well above your typical %.1f", label, current, mean)
	case StatusElevated:
		return fmt.Sprintf("%s at %.1f is above your typical %.1f", label, current, mean)
	case StatusSignificantlyDepressed:
		return fmt.Sprintf("%s at %.1f is well below your typical %.1f", label, current, mean)
	case StatusDepressed:
		return fmt.Sprintf("%s at %.1f is below your typical %.1f", label, current, mean)
	default:
		return fmt.Sprintf("%s at %.1f is in your normal range (typical %.1f)", label, current, mean)
	}
}

// MetricLabel maps a metric key to reader-facing words.
func MetricLabel(metric string) string {
	switch metric {
	case types.MetricRestingHeartRate:
		return "resting heart rate"
	case types.MetricHRV:
		return "heart-rate variability"
	case types.MetricStrain:
		return "strain"
	case types.MetricRecoveryScore:
		return "recovery score"
	case types.MetricSleepHours:
		return "sleep"
	case types.MetricMood:
		return "mood"
	default:
		return metric
	}
}
