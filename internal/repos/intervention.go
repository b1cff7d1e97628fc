package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

type InterventionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, iv *types.Intervention) (*types.Intervention, error)
	ListActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, at time.Time) ([]*types.Intervention, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Intervention, error)
	SetStatus(ctx context.Context, tx *gorm.DB, userID, interventionID uuid.UUID, status string) error
}

type interventionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInterventionRepo(db *gorm.DB, baseLog *logger.Logger) InterventionRepo {
	return &interventionRepo{db: db, log: baseLog.With("repo", "InterventionRepo")}
}

func (r *interventionRepo) Create(ctx context.Context, tx *gorm.DB, iv *types.Intervention) (*types.Intervention, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if iv == nil || iv.UserID == uuid.Nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(iv).Error; err != nil {
		return nil, err
	}
	return iv, nil
}

func (r *interventionRepo) ListActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, at time.Time) ([]*types.Intervention, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Intervention
	if userID == uuid.Nil {
		return results, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND status = ? AND started_at <= ? AND (ends_at IS NULL OR ends_at > ?)",
			userID, types.InterventionActive, at, at).
		Order("started_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *interventionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Intervention, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Intervention
	if userID == uuid.Nil {
		return results, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *interventionRepo) SetStatus(ctx context.Context, tx *gorm.DB, userID, interventionID uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || interventionID == uuid.Nil || status == "" {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Intervention{}).
		Where("user_id = ? AND id = ?", userID, interventionID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()}).Error
}
