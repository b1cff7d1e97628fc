package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Insight categories; one InsightDoc row per user per category.
const (
	CategoryReflections  = "reflections"
	CategoryCorrelations = "correlations"
	CategoryRecovery     = "recovery"
	CategoryCalibration  = "calibration"
)

// Validation states for evidence-backed insights.
const (
	ValidationConfirmed = "confirmed"
	ValidationPending   = "pending_validation"
	ValidationHidden    = "hidden"
	ValidationDismissed = "dismissed"
)

// Priority bands. Lower is more urgent.
const (
	PriorityCalibration   = 0 // onboarding and data-quality notices
	PriorityHigh          = 1 // confirmed or high-effect findings
	PriorityModerate      = 2
	PriorityCorrelational = 3 // low-confidence, shown sparingly
)

// Insight is the unit the consumer renders. Pure JSON contract, not a DB
// model. ID is a stable content hash so regeneration is idempotent and
// history merges are keyed.
type Insight struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	Kind       string    `json:"kind"` // pattern|baseline_deviation|state_change|association_rule|decline_sequence|recovery_path|meta_pattern|dissonance|counterfactual|calibration
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	Body       string    `json:"body,omitempty"`
	Priority   int       `json:"priority"`
	Confidence float64   `json:"confidence"`
	Validation string    `json:"validation,omitempty"`
	Evidence   []string  `json:"evidence,omitempty"`
	SourceKey  string    `json:"source_key,omitempty"` // rule key, pattern id or thread id behind this insight
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	Dismissed  bool      `json:"dismissed,omitempty"`
}

// InsightDoc is the per-user, per-category insight document: the active
// set the client renders plus a bounded history used for dedup and
// idempotent merging.
type InsightDoc struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_insight_user_category" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	Category string `gorm:"not null;uniqueIndex:idx_insight_user_category" json:"category"`

	Active  datatypes.JSONSlice[Insight] `gorm:"type:jsonb;column:active" json:"active"`
	History datatypes.JSONSlice[Insight] `gorm:"type:jsonb;column:history" json:"history"`

	GeneratedAt time.Time `gorm:"not null" json:"generated_at"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (InsightDoc) TableName() string { return "insight_doc" }

func (d *InsightDoc) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
