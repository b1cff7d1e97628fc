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

type UserSettingsRepo interface {
	// Get returns stored settings, or defaults when the user has no row.
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserSettings, error)
	Upsert(ctx context.Context, tx *gorm.DB, settings *types.UserSettings) error
}

type userSettingsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserSettingsRepo(db *gorm.DB, baseLog *logger.Logger) UserSettingsRepo {
	return &userSettingsRepo{db: db, log: baseLog.With("repo", "UserSettingsRepo")}
}

func (r *userSettingsRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserSettings, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.UserSettings
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return types.DefaultSettings(userID), nil
	}
	return &row, nil
}

func (r *userSettingsRepo) Upsert(ctx context.Context, tx *gorm.DB, settings *types.UserSettings) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if settings == nil || settings.UserID == uuid.Nil {
		return nil
	}
	settings.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"synthesis_enabled", "dedup_threshold", "updated_at",
			}),
		}).
		Create(settings).Error
}
