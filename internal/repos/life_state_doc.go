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

type LifeStateDocRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.LifeStateDoc, error)
	Upsert(ctx context.Context, tx *gorm.DB, doc *types.LifeStateDoc) error
}

type lifeStateDocRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLifeStateDocRepo(db *gorm.DB, baseLog *logger.Logger) LifeStateDocRepo {
	return &lifeStateDocRepo{db: db, log: baseLog.With("repo", "LifeStateDocRepo")}
}

func (r *lifeStateDocRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.LifeStateDoc, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.LifeStateDoc
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

func (r *lifeStateDocRepo) Upsert(ctx context.Context, tx *gorm.DB, doc *types.LifeStateDoc) error {
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
				"current", "history", "updated_at",
			}),
		}).
		Create(doc).Error
}
