package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ThreadStatusActive   = "active"
	ThreadStatusEvolved  = "evolved"
	ThreadStatusResolved = "resolved"
)

// ThreadCategories is the fixed storyline taxonomy. Matching never invents
// categories outside this list.
var ThreadCategories = []string{
	"career", "health", "relationship", "growth", "somatic",
	"financial", "housing", "creative", "social",
}

const (
	TrajectoryImproving = "improving"
	TrajectoryDeclining = "declining"
	TrajectoryVolatile  = "volatile"
	TrajectoryStable    = "stable"
)

// ArcPoint is one append-only point on a thread's emotional arc.
type ArcPoint struct {
	EntryID   uuid.UUID `json:"entry_id"`
	Sentiment float64   `json:"sentiment"`
	Note      string    `json:"note,omitempty"`
	At        time.Time `json:"at"`
}

// Thread is a narrative thread: a recurring concern tracked across
// entries. Lineage is an id chain (root/predecessor/successor); a thread
// that metamorphoses into a new one is flipped to "evolved" exactly once
// and never flips back.
type Thread struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_thread_user_status" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	DisplayName    string `gorm:"not null;column:display_name" json:"display_name"`
	NormalizedName string `gorm:"not null;index;column:normalized_name" json:"normalized_name"`
	Category       string `gorm:"not null;column:category" json:"category"`
	Status         string `gorm:"not null;default:active;index:idx_thread_user_status" json:"status"`

	// Ring of the most recent sentiments (capped at 10, oldest dropped).
	SentimentHistory  datatypes.JSONSlice[float64] `gorm:"type:jsonb;column:sentiment_history" json:"sentiment_history"`
	SentimentBaseline float64                      `gorm:"column:sentiment_baseline" json:"sentiment_baseline"`
	Trajectory        string                       `gorm:"not null;default:stable" json:"trajectory"`

	EmotionalArc datatypes.JSONSlice[ArcPoint]  `gorm:"type:jsonb;column:emotional_arc" json:"emotional_arc"`
	EntryIDs     datatypes.JSONSlice[uuid.UUID] `gorm:"type:jsonb;column:entry_ids" json:"entry_ids"`

	RootID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"root_id"`
	PredecessorID *uuid.UUID `gorm:"type:uuid" json:"predecessor_id,omitempty"`
	SuccessorID   *uuid.UUID `gorm:"type:uuid" json:"successor_id,omitempty"`

	Embedding datatypes.JSONSlice[float32] `gorm:"type:jsonb;column:embedding" json:"-"`

	LastEntryAt time.Time `gorm:"not null;index" json:"last_entry_at"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Thread) TableName() string { return "thread" }

func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.RootID == uuid.Nil {
		t.RootID = t.ID
	}
	return nil
}
