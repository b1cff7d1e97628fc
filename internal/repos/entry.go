package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

type EntryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.Entry) (*types.Entry, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID, entryID uuid.UUID) (*types.Entry, error)
	// ListRecent returns up to limit entries newest-first by EffectiveAt.
	ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Entry, error)
	ListRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.Entry, error)
	Update(ctx context.Context, tx *gorm.DB, entry *types.Entry) error
	CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
}

type entryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntryRepo(db *gorm.DB, baseLog *logger.Logger) EntryRepo {
	return &entryRepo{db: db, log: baseLog.With("repo", "EntryRepo")}
}

func (r *entryRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.Entry) (*types.Entry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if entry == nil || entry.UserID == uuid.Nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *entryRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, entryID uuid.UUID) (*types.Entry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || entryID == uuid.Nil {
		return nil, nil
	}
	var row types.Entry
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, entryID).
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

func (r *entryRepo) ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Entry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Entry
	if userID == uuid.Nil {
		return results, nil
	}
	if limit <= 0 {
		limit = 100
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("effective_at DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *entryRepo) ListRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.Entry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Entry
	if userID == uuid.Nil {
		return results, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND effective_at >= ? AND effective_at < ?", userID, from, to).
		Order("effective_at ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *entryRepo) Update(ctx context.Context, tx *gorm.DB, entry *types.Entry) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if entry == nil || entry.ID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(entry).Error
}

func (r *entryRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return 0, nil
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Entry{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
