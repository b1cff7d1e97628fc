package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StateScore is one scored life-state candidate.
type StateScore struct {
	StateID    string  `json:"state_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// StateSnapshot is the current life-state estimate: one primary state plus
// up to two secondaries.
type StateSnapshot struct {
	Primary    StateScore   `json:"primary"`
	Secondary  []StateScore `json:"secondary,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	DetectedAt time.Time    `json:"detected_at"`
}

// StateTransition is an archived state period: how long it held and which
// state it resolved into.
type StateTransition struct {
	StateID      string    `json:"state_id"`
	Label        string    `json:"label"`
	Confidence   float64   `json:"confidence"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	DurationDays float64   `json:"duration_days"`
	Outcome      string    `json:"outcome"` // id of the state it transitioned into
}

// LifeStateDoc is the per-user life-state document: the current snapshot
// plus a bounded transition history (newest first, capped at 20).
type LifeStateDoc struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	Current datatypes.JSONType[*StateSnapshot]   `gorm:"type:jsonb;column:current" json:"current"`
	History datatypes.JSONSlice[StateTransition] `gorm:"type:jsonb;column:history" json:"history"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LifeStateDoc) TableName() string { return "life_state_doc" }

func (d *LifeStateDoc) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
