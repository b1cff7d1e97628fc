package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HealthSnapshot is the optional health block attached to an entry by the
// client. Pure JSON contract, not a DB model.
type HealthSnapshot struct {
	SleepHours   *float64 `json:"sleep_hours,omitempty"`
	SleepQuality *string  `json:"sleep_quality,omitempty"` // poor|fair|good
	Workout      *Workout `json:"workout,omitempty"`
}

type Workout struct {
	Kind            string  `json:"kind"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// Entry is a single journal entry. The store is append-mostly: entries are
// never rewritten in place except for corrective edits, which bump
// RevisedAt so downstream caches know to invalidate.
type Entry struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_entry_user_effective" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	Text string   `gorm:"type:text;not null" json:"text"`
	Mood *float64 `gorm:"column:mood" json:"mood,omitempty"` // [0,1]

	// Tags use the "kind:value" convention, e.g. "person:maya",
	// "place:office", "activity:running", "topic:work", "weather:rainy".
	Tags   datatypes.JSONSlice[string]         `gorm:"type:jsonb;column:tags" json:"tags"`
	Health datatypes.JSONType[*HealthSnapshot] `gorm:"type:jsonb;column:health" json:"health"`

	EffectiveAt time.Time  `gorm:"not null;index:idx_entry_user_effective" json:"effective_at"`
	RevisedAt   *time.Time `gorm:"column:revised_at" json:"revised_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Entry) TableName() string { return "entry" }

func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// MoodValue returns the entry mood or the neutral midpoint when unset.
func (e *Entry) MoodValue() float64 {
	if e.Mood == nil {
		return 0.5
	}
	return *e.Mood
}

// FirstTag returns the lowercased value of the first tag with the given
// kind, e.g. FirstTag("weather") on ["weather:Rainy"] yields "rainy".
func (e *Entry) FirstTag(kind string) (string, bool) {
	for _, raw := range e.Tags {
		k, v, ok := SplitTag(raw)
		if ok && k == kind {
			return v, true
		}
	}
	return "", false
}

// SplitTag parses a "kind:value" tag into its lowercased parts.
func SplitTag(raw string) (kind, value string, ok bool) {
	i := strings.IndexByte(raw, ':')
	if i <= 0 || i == len(raw)-1 {
		return "", "", false
	}
	kind = strings.ToLower(strings.TrimSpace(raw[:i]))
	value = strings.ToLower(strings.TrimSpace(raw[i+1:]))
	if kind == "" || value == "" {
		return "", "", false
	}
	return kind, value, true
}

// HasMood reports whether the user scored this entry.
func (e *Entry) HasMood() bool { return e.Mood != nil }
