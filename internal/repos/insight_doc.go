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

type InsightDocRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, category string) (*types.InsightDoc, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.InsightDoc, error)
	Upsert(ctx context.Context, tx *gorm.DB, doc *types.InsightDoc) error
	ListExpiredUsers(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

type insightDocRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInsightDocRepo(db *gorm.DB, baseLog *logger.Logger) InsightDocRepo {
	return &insightDocRepo{db: db, log: baseLog.With("repo", "InsightDocRepo")}
}

func (r *insightDocRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, category string) (*types.InsightDoc, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || category == "" {
		return nil, nil
	}
	var row types.InsightDoc
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND category = ?", userID, category).
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

func (r *insightDocRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.InsightDoc, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.InsightDoc
	if userID == uuid.Nil {
		return results, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("category ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *insightDocRepo) Upsert(ctx context.Context, tx *gorm.DB, doc *types.InsightDoc) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if doc == nil || doc.UserID == uuid.Nil || doc.Category == "" {
		return nil
	}
	doc.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"active", "history", "generated_at", "expires_at", "updated_at",
			}),
		}).
		Create(doc).Error
}

// ListExpiredUsers returns distinct users whose cached insights have aged past
// the cutoff. Used by the background refresher to pick who to regenerate.
func (r *insightDocRepo) ListExpiredUsers(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var ids []uuid.UUID
	err := transaction.WithContext(ctx).
		Model(&types.InsightDoc{}).
		Distinct("user_id").
		Where("expires_at <= ?", cutoff).
		Limit(limit).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
