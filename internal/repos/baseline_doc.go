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

type BaselineDocRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.BaselineDoc, error)
	Upsert(ctx context.Context, tx *gorm.DB, doc *types.BaselineDoc) error
}

type baselineDocRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBaselineDocRepo(db *gorm.DB, baseLog *logger.Logger) BaselineDocRepo {
	return &baselineDocRepo{db: db, log: baseLog.With("repo", "BaselineDocRepo")}
}

func (r *baselineDocRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.BaselineDoc, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.BaselineDoc
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
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

func (r *baselineDocRepo) Upsert(ctx context.Context, tx *gorm.DB, doc *types.BaselineDoc) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if doc == nil || doc.UserID == uuid.Nil {
		return nil
	}
	doc.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"global", "contextual", "sample_size", "computed_at", "updated_at",
			}),
		}).
		Create(doc).Error
}
