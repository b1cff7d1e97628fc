package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserSettings carries the few per-user knobs the insight engine honors.
// Absent row means defaults.
type UserSettings struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	SynthesisEnabled bool    `gorm:"not null;default:true" json:"synthesis_enabled"`
	DedupThreshold   float64 `gorm:"not null;default:0.82" json:"dedup_threshold"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserSettings) TableName() string { return "user_settings" }

func (s *UserSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// DefaultSettings returns the settings used when a user has no row.
func DefaultSettings(userID uuid.UUID) *UserSettings {
	return &UserSettings{
		UserID:           userID,
		SynthesisEnabled: true,
		DedupThreshold:   0.82,
	}
}
