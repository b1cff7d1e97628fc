package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MetricStats is the summary a baseline stores per metric. Pure JSON
// contract, not a DB model.
type MetricStats struct {
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	P25         float64 `json:"p25"`
	P50         float64 `json:"p50"`
	P75         float64 `json:"p75"`
	TrendPerDay float64 `json:"trend_per_day"`
	SampleSize  int     `json:"sample_size"`
}

// BaselineSet maps metric name -> stats. Contextual baselines are keyed by
// a context slice ("state:waiting", "entity:maya", "activity:running",
// "day:monday") and hold a full set each.
type BaselineSet map[string]*MetricStats

// BaselineDoc is the per-user personal-baseline document. Recomputed at
// most once per 24h and only once the user has enough history; consumers
// treat a missing or stale doc as "unknown", never as zero.
type BaselineDoc struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	Global     datatypes.JSONType[BaselineSet]            `gorm:"type:jsonb;column:global" json:"global"`
	Contextual datatypes.JSONType[map[string]BaselineSet] `gorm:"type:jsonb;column:contextual" json:"contextual"`

	SampleSize int       `gorm:"not null;default:0" json:"sample_size"`
	ComputedAt time.Time `gorm:"not null" json:"computed_at"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (BaselineDoc) TableName() string { return "baseline_doc" }

func (d *BaselineDoc) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
