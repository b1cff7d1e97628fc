package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/apierr"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/repos"
	"github.com/yungbote/fathom-backend/internal/requestdata"
	"github.com/yungbote/fathom-backend/internal/types"
)

const defaultBiometricWindowDays = 90

// DayInput carries one calendar day of biometrics from a wearable export.
type DayInput struct {
	Day              time.Time `json:"day"`
	RestingHeartRate *float64  `json:"resting_heart_rate,omitempty"`
	HRV              *float64  `json:"hrv,omitempty"`
	Strain           *float64  `json:"strain,omitempty"`
	RecoveryScore    *float64  `json:"recovery_score,omitempty"`
	SleepHours       *float64  `json:"sleep_hours,omitempty"`
}

type BiometricService interface {
	UpsertDays(ctx context.Context, days []DayInput) (int, error)
	ListRange(ctx context.Context, from, to time.Time) ([]*types.BiometricDay, error)
}

type biometricService struct {
	db   *gorm.DB
	log  *logger.Logger
	days repos.BiometricDayRepo
}

func NewBiometricService(db *gorm.DB, log *logger.Logger, days repos.BiometricDayRepo) BiometricService {
	return &biometricService{
		db:   db,
		log:  log.With("service", "BiometricService"),
		days: days,
	}
}

func (s *biometricService) UpsertDays(ctx context.Context, days []DayInput) (int, error) {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return 0, apierr.Unauthorized("unauthenticated", fmt.Errorf("no authenticated user"))
	}
	if len(days) == 0 {
		return 0, nil
	}

	// Last write wins when the payload repeats a day.
	byDay := map[string]*types.BiometricDay{}
	order := make([]string, 0, len(days))
	for _, in := range days {
		if in.Day.IsZero() {
			return 0, apierr.BadRequest("day_required", fmt.Errorf("biometric day is zero"))
		}
		key := types.DayKey(in.Day)
		if _, ok := byDay[key]; !ok {
			order = append(order, key)
		}
		byDay[key] = &types.BiometricDay{
			UserID:           userID,
			Day:              in.Day.UTC().Truncate(24 * time.Hour),
			RestingHeartRate: in.RestingHeartRate,
			HRV:              in.HRV,
			Strain:           in.Strain,
			RecoveryScore:    in.RecoveryScore,
			SleepHours:       in.SleepHours,
		}
	}
	rows := make([]*types.BiometricDay, 0, len(order))
	for _, key := range order {
		rows = append(rows, byDay[key])
	}
	if err := s.days.UpsertDays(ctx, nil, rows); err != nil {
		return 0, apierr.Internal("biometric_upsert_failed", err)
	}
	return len(rows), nil
}

func (s *biometricService) ListRange(ctx context.Context, from, to time.Time) ([]*types.BiometricDay, error) {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthenticated", fmt.Errorf("no authenticated user"))
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultBiometricWindowDays)
	}
	if !from.Before(to) {
		return nil, apierr.BadRequest("invalid_range", fmt.Errorf("from %s is not before to %s", from, to))
	}
	rows, err := s.days.ListRange(ctx, nil, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, apierr.Internal("biometric_list_failed", err)
	}
	return rows, nil
}
