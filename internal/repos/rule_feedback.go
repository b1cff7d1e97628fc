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

type RuleFeedbackRepo interface {
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.RuleFeedback, error)
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ruleKey string) (*types.RuleFeedback, error)
	Upsert(ctx context.Context, tx *gorm.DB, fb *types.RuleFeedback) error
}

type ruleFeedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRuleFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) RuleFeedbackRepo {
	return &ruleFeedbackRepo{db: db, log: baseLog.With("repo", "RuleFeedbackRepo")}
}

func (r *ruleFeedbackRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.RuleFeedback, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.RuleFeedback
	if userID == uuid.Nil {
		return results, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ruleFeedbackRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ruleKey string) (*types.RuleFeedback, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || ruleKey == "" {
		return nil, nil
	}
	var row types.RuleFeedback
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND rule_key = ?", userID, ruleKey).
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

func (r *ruleFeedbackRepo) Upsert(ctx context.Context, tx *gorm.DB, fb *types.RuleFeedback) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if fb == nil || fb.UserID == uuid.Nil || fb.RuleKey == "" {
		return nil
	}
	fb.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "rule_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"state", "adjustment", "verdict", "updated_at",
			}),
		}).
		Create(fb).Error
}
