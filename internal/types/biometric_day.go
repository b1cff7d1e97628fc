package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BiometricDay is one day of wearable metrics. All metrics are optional;
// analysis degrades to entry-only mode when a user has no biometric data.
type BiometricDay struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_biometric_user_day" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	// Day is truncated to midnight UTC; one row per user per day.
	Day time.Time `gorm:"not null;uniqueIndex:idx_biometric_user_day" json:"day"`

	RestingHeartRate *float64 `gorm:"column:resting_heart_rate" json:"resting_heart_rate,omitempty"`
	HRV              *float64 `gorm:"column:hrv" json:"hrv,omitempty"`
	Strain           *float64 `gorm:"column:strain" json:"strain,omitempty"`
	RecoveryScore    *float64 `gorm:"column:recovery_score" json:"recovery_score,omitempty"`
	SleepHours       *float64 `gorm:"column:sleep_hours" json:"sleep_hours,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (BiometricDay) TableName() string { return "biometric_day" }

func (b *BiometricDay) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Metric returns the named metric value, or nil when absent.
func (b *BiometricDay) Metric(name string) *float64 {
	if b == nil {
		return nil
	}
	switch name {
	case MetricRestingHeartRate:
		return b.RestingHeartRate
	case MetricHRV:
		return b.HRV
	case MetricStrain:
		return b.Strain
	case MetricRecoveryScore:
		return b.RecoveryScore
	case MetricSleepHours:
		return b.SleepHours
	default:
		return nil
	}
}

// Metric names shared by baselines, pattern predicates and comparisons.
const (
	MetricRestingHeartRate = "resting_heart_rate"
	MetricHRV              = "hrv"
	MetricStrain           = "strain"
	MetricRecoveryScore    = "recovery_score"
	MetricSleepHours       = "sleep_hours"
	MetricMood             = "mood"
)

// BiometricMetrics lists the wearable metrics in a stable order.
var BiometricMetrics = []string{
	MetricRestingHeartRate,
	MetricHRV,
	MetricStrain,
	MetricRecoveryScore,
	MetricSleepHours,
}

// DayKey formats a timestamp as the UTC calendar-day key used to join
// entries with biometric days.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Key returns the row's own day key.
func (b *BiometricDay) Key() string { return DayKey(b.Day) }
