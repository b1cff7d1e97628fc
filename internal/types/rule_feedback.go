package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RuleFeedback persists a user's verdict on a mined association rule so it
// survives re-mining. RuleKey is the canonical sorted-antecedent hash; the
// same rule mined again picks its adjustment and state back up.
type RuleFeedback struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rule_feedback_user_key" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	RuleKey    string  `gorm:"not null;uniqueIndex:idx_rule_feedback_user_key" json:"rule_key"`
	State      string  `gorm:"not null" json:"state"`                   // confirmed|pending_validation|hidden|dismissed
	Adjustment float64 `gorm:"not null" json:"adjustment"`              // cumulative confidence delta from feedback
	Verdict    string  `gorm:"column:verdict" json:"verdict,omitempty"` // confirmed|rejected (last user action)

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (RuleFeedback) TableName() string { return "rule_feedback" }

func (f *RuleFeedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
