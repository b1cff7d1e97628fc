package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/apierr"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/repos"
	"github.com/yungbote/fathom-backend/internal/requestdata"
	"github.com/yungbote/fathom-backend/internal/types"
)

const (
	defaultListLimit = 30
	maxListLimit     = 100
)

// CacheInvalidator marks a user's cached insights stale. Corrective entry
// edits use it so the next insight read regenerates against the corrected
// history.
type CacheInvalidator interface {
	MarkStale(ctx context.Context, userID uuid.UUID) error
}

// EntryInput is a new journal entry as the client sends it.
type EntryInput struct {
	Text        string                `json:"text"`
	Mood        *float64              `json:"mood,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	Health      *types.HealthSnapshot `json:"health,omitempty"`
	EffectiveAt *time.Time            `json:"effective_at,omitempty"`
}

// EntryPatch is a corrective edit; nil fields stay untouched.
type EntryPatch struct {
	Text *string  `json:"text,omitempty"`
	Mood *float64 `json:"mood,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

type EntryService interface {
	Create(ctx context.Context, in EntryInput) (*types.Entry, error)
	List(ctx context.Context, limit int) ([]*types.Entry, error)
	Revise(ctx context.Context, entryID uuid.UUID, patch EntryPatch) (*types.Entry, error)
}

type entryService struct {
	db          *gorm.DB
	log         *logger.Logger
	entries     repos.EntryRepo
	invalidator CacheInvalidator
	tracker     *ThreadTracker
}

// NewEntryService wires the entry flow. tracker may be nil; storyline
// tracking is then skipped.
func NewEntryService(db *gorm.DB, log *logger.Logger, entries repos.EntryRepo, invalidator CacheInvalidator, tracker *ThreadTracker) EntryService {
	return &entryService{
		db:          db,
		log:         log.With("service", "EntryService"),
		entries:     entries,
		invalidator: invalidator,
		tracker:     tracker,
	}
}

func (s *entryService) Create(ctx context.Context, in EntryInput) (*types.Entry, error) {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthenticated", fmt.Errorf("no authenticated user"))
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apierr.BadRequest("text_required", fmt.Errorf("entry text is empty"))
	}

	effective := time.Now().UTC()
	if in.EffectiveAt != nil && !in.EffectiveAt.IsZero() {
		effective = in.EffectiveAt.UTC()
	}
	entry := &types.Entry{
		UserID:      userID,
		Text:        text,
		Mood:        clampMood(in.Mood),
		Tags:        normalizeTags(in.Tags),
		Health:      datatypes.NewJSONType(in.Health),
		EffectiveAt: effective,
	}
	created, err := s.entries.Create(ctx, nil, entry)
	if err != nil {
		return nil, apierr.Internal("entry_create_failed", err)
	}
	if s.tracker != nil {
		s.tracker.Track(ctx, created)
	}
	return created, nil
}

func (s *entryService) List(ctx context.Context, limit int) ([]*types.Entry, error) {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthenticated", fmt.Errorf("no authenticated user"))
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := s.entries.ListRecent(ctx, nil, userID, limit)
	if err != nil {
		return nil, apierr.Internal("entry_list_failed", err)
	}
	return rows, nil
}

// Revise applies a corrective edit, bumps RevisedAt and invalidates the
// user's cached insights so derived state catches up on the next read.
func (s *entryService) Revise(ctx context.Context, entryID uuid.UUID, patch EntryPatch) (*types.Entry, error) {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthenticated", fmt.Errorf("no authenticated user"))
	}
	entry, err := s.entries.GetByID(ctx, nil, userID, entryID)
	if err != nil {
		return nil, apierr.Internal("entry_lookup_failed", err)
	}
	if entry == nil {
		return nil, apierr.NotFound("entry_not_found", fmt.Errorf("entry %s not found", entryID))
	}

	changed := false
	if patch.Text != nil {
		text := strings.TrimSpace(*patch.Text)
		if text == "" {
			return nil, apierr.BadRequest("text_required", fmt.Errorf("entry text is empty"))
		}
		entry.Text = text
		changed = true
	}
	if patch.Mood != nil {
		entry.Mood = clampMood(patch.Mood)
		changed = true
	}
	if patch.Tags != nil {
		entry.Tags = normalizeTags(patch.Tags)
		changed = true
	}
	if !changed {
		return entry, nil
	}

	now := time.Now().UTC()
	entry.RevisedAt = &now
	if err := s.entries.Update(ctx, nil, entry); err != nil {
		return nil, apierr.Internal("entry_update_failed", err)
	}
	if err := s.invalidator.MarkStale(ctx, userID); err != nil {
		// The edit is saved; only cache freshness is at risk.
		s.log.Warn("insight invalidation failed after edit", "user_id", userID.String(), "error", err)
	}
	return entry, nil
}

func clampMood(mood *float64) *float64 {
	if mood == nil {
		return nil
	}
	v := *mood
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}

// normalizeTags keeps only well-formed lowercase "kind:value" tags.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, raw := range tags {
		kind, value, ok := types.SplitTag(raw)
		if !ok {
			continue
		}
		tag := kind + ":" + value
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
