package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

type BiometricDayRepo interface {
	// UpsertDays writes one row per (user, day); existing days are updated
	// in place.
	UpsertDays(ctx context.Context, tx *gorm.DB, days []*types.BiometricDay) error
	ListRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.BiometricDay, error)
	ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.BiometricDay, error)
}

type biometricDayRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBiometricDayRepo(db *gorm.DB, baseLog *logger.Logger) BiometricDayRepo {
	return &biometricDayRepo{db: db, log: baseLog.With("repo", "BiometricDayRepo")}
}

func (r *biometricDayRepo) UpsertDays(ctx context.Context, tx *gorm.DB, days []*types.BiometricDay) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(days) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, d := range days {
		if d == nil || d.UserID == uuid.Nil {
			continue
		}
		d.Day = d.Day.UTC().Truncate(24 * time.Hour)
		d.UpdatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"resting_heart_rate", "hrv", "strain", "recovery_score", "sleep_hours", "updated_at",
			}),
		}).
		Create(&days).Error
}

func (r *biometricDayRepo) ListRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.BiometricDay, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.BiometricDay
	if userID == uuid.Nil {
		return results, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND day >= ? AND day < ?", userID, from, to).
		Order("day ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *biometricDayRepo) ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.BiometricDay, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.BiometricDay
	if userID == uuid.Nil {
		return results, nil
	}
	if limit <= 0 {
		limit = 120
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
