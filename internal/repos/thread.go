package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

type ThreadRepo interface {
	Create(ctx context.Context, tx *gorm.DB, thread *types.Thread) (*types.Thread, error)
	Update(ctx context.Context, tx *gorm.DB, thread *types.Thread) error
	GetByID(ctx context.Context, tx *gorm.DB, userID, threadID uuid.UUID) (*types.Thread, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Thread, error)
	ListByStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) ([]*types.Thread, error)
}

type threadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadRepo(db *gorm.DB, baseLog *logger.Logger) ThreadRepo {
	return &threadRepo{db: db, log: baseLog.With("repo", "ThreadRepo")}
}

func (r *threadRepo) Create(ctx context.Context, tx *gorm.DB, thread *types.Thread) (*types.Thread, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if thread == nil || thread.UserID == uuid.Nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(thread).Error; err != nil {
		return nil, err
	}
	return thread, nil
}

func (r *threadRepo) Update(ctx context.Context, tx *gorm.DB, thread *types.Thread) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if thread == nil || thread.ID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(thread).Error
}

func (r *threadRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, threadID uuid.UUID) (*types.Thread, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || threadID == uuid.Nil {
		return nil, nil
	}
	var row types.Thread
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, threadID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *threadRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Thread, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Thread
	if userID == uuid.Nil {
		return results, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_entry_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *threadRepo) ListByStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) ([]*types.Thread, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Thread
	if userID == uuid.Nil || status == "" {
		return results, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, status).
		Order("last_entry_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
