package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	InterventionActive    = "active"
	InterventionCompleted = "completed"
	InterventionAbandoned = "abandoned"
)

// Intervention is a user-logged experiment ("no caffeine for two weeks").
// Active interventions feed the synthesis context and calibration notices.
type Intervention struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	Name         string     `gorm:"not null" json:"name"`
	TargetMetric string     `gorm:"column:target_metric" json:"target_metric,omitempty"`
	Status       string     `gorm:"not null;default:active" json:"status"`
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	EndsAt       *time.Time `gorm:"column:ends_at" json:"ends_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Intervention) TableName() string { return "intervention" }

func (i *Intervention) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
