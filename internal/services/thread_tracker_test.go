package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/modules/insight/threads"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

type fakeTrackerThreadRepo struct {
	rows []*types.Thread
}

func (f *fakeTrackerThreadRepo) Create(ctx context.Context, tx *gorm.DB, thread *types.Thread) (*types.Thread, error) {
	if thread.ID == uuid.Nil {
		thread.ID = uuid.New()
	}
	f.rows = append(f.rows, thread)
	return thread, nil
}

func (f *fakeTrackerThreadRepo) Update(ctx context.Context, tx *gorm.DB, thread *types.Thread) error {
	for i, th := range f.rows {
		if th.ID == thread.ID {
			f.rows[i] = thread
		}
	}
	return nil
}

func (f *fakeTrackerThreadRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, threadID uuid.UUID) (*types.Thread, error) {
	for _, th := range f.rows {
		if th.UserID == userID && th.ID == threadID {
			return th, nil
		}
	}
	return nil, nil
}

func (f *fakeTrackerThreadRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Thread, error) {
	var out []*types.Thread
	for _, th := range f.rows {
		if th.UserID == userID {
			out = append(out, th)
		}
	}
	return out, nil
}

func (f *fakeTrackerThreadRepo) ListByStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) ([]*types.Thread, error) {
	var out []*types.Thread
	for _, th := range f.rows {
		if th.UserID == userID && th.Status == status {
			out = append(out, th)
		}
	}
	return out, nil
}

func newTestTracker(t *testing.T) (*ThreadTracker, *fakeTrackerThreadRepo) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	repo := &fakeTrackerThreadRepo{}
	mgr := threads.NewManager(nil, repo, log)
	return NewThreadTracker(mgr, nil, log), repo
}

func trackedEntry(userID uuid.UUID, mood float64, tags ...string) *types.Entry {
	return &types.Entry{
		ID:          uuid.New(),
		UserID:      userID,
		Text:        "long talk with maya about the move",
		Mood:        &mood,
		Tags:        tags,
		EffectiveAt: time.Now().UTC(),
	}
}

func TestTrackOpensThreadPerTrackedTag(t *testing.T) {
	tracker, repo := newTestTracker(t)
	userID := uuid.New()

	tracker.Track(context.Background(), trackedEntry(userID, 0.7,
		"person:maya", "topic:moving", "weather:rainy"))

	if len(repo.rows) != 2 {
		t.Fatalf("threads created = %d, want 2 (weather ignored)", len(repo.rows))
	}
	byName := map[string]*types.Thread{}
	for _, th := range repo.rows {
		byName[th.NormalizedName] = th
	}
	if byName["maya"] == nil || byName["maya"].Category != "relationship" {
		t.Fatalf("person tag not mapped to relationship thread: %+v", repo.rows)
	}
	if byName["moving"] == nil || byName["moving"].Category != "growth" {
		t.Fatalf("topic tag not mapped to growth thread: %+v", repo.rows)
	}
}

func TestTrackContinuesExistingThread(t *testing.T) {
	tracker, repo := newTestTracker(t)
	userID := uuid.New()
	ctx := context.Background()

	tracker.Track(ctx, trackedEntry(userID, 0.8, "person:maya"))
	tracker.Track(ctx, trackedEntry(userID, 0.3, "person:maya"))

	if len(repo.rows) != 1 {
		t.Fatalf("threads = %d, want continuation of one thread", len(repo.rows))
	}
	th := repo.rows[0]
	if len(th.SentimentHistory) != 2 {
		t.Fatalf("sentiment history = %v", th.SentimentHistory)
	}
	if len(th.EntryIDs) != 2 {
		t.Fatalf("entry ids = %v", th.EntryIDs)
	}
}

func TestTrackIgnoresUntaggedEntry(t *testing.T) {
	tracker, repo := newTestTracker(t)
	tracker.Track(context.Background(), trackedEntry(uuid.New(), 0.5))
	if len(repo.rows) != 0 {
		t.Fatalf("untagged entry opened threads: %v", repo.rows)
	}
}
