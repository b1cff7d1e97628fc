package lifestate

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

type fakeStateRepo struct {
	doc  *types.LifeStateDoc
	fail error
}

func (f *fakeStateRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.LifeStateDoc, error) {
	return f.doc, nil
}

func (f *fakeStateRepo) Upsert(ctx context.Context, tx *gorm.DB, doc *types.LifeStateDoc) error {
	if f.fail != nil {
		return f.fail
	}
	f.doc = doc
	return nil
}

func newTestStateManager(t *testing.T, repo *fakeStateRepo) *Manager {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewManager(repo, log)
}

func detectionOf(id string) Detection {
	return Detection{Primary: types.StateScore{StateID: id, Label: id, Confidence: 0.8}}
}

func TestUpdateArchivesOutgoingState(t *testing.T) {
	repo := &fakeStateRepo{}
	m := newTestStateManager(t, repo)
	userID := uuid.New()
	t0 := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	m.now = func() time.Time { return t0 }
	doc, changed, err := m.Update(context.Background(), userID, detectionOf("job_searching"))
	if err != nil {
		t.Fatalf("first Update: %v", err)
	}
	if !changed {
		t.Fatalf("first detection must count as a change")
	}
	if got := doc.Current.Data().Primary.StateID; got != "job_searching" {
		t.Fatalf("current = %s, want job_searching", got)
	}
	if len(doc.History) != 0 {
		t.Fatalf("history = %d entries after first detection, want 0", len(doc.History))
	}

	m.now = func() time.Time { return t0.Add(48 * time.Hour) }
	doc, changed, err = m.Update(context.Background(), userID, detectionOf("burnout_risk"))
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if !changed {
		t.Fatalf("primary change not reported")
	}
	if len(doc.History) != 1 {
		t.Fatalf("history = %d entries, want 1", len(doc.History))
	}
	tr := doc.History[0]
	if tr.StateID != "job_searching" || tr.Outcome != "burnout_risk" {
		t.Fatalf("transition = %+v, want job_searching -> burnout_risk", tr)
	}
	if math.Abs(tr.DurationDays-2) > 1e-9 {
		t.Fatalf("duration = %v days, want 2", tr.DurationDays)
	}

	// Same primary again: duration keeps accruing from the original start.
	m.now = func() time.Time { return t0.Add(72 * time.Hour) }
	doc, changed, err = m.Update(context.Background(), userID, detectionOf("burnout_risk"))
	if err != nil {
		t.Fatalf("third Update: %v", err)
	}
	if changed {
		t.Fatalf("unchanged primary reported as a change")
	}
	cur := doc.Current.Data()
	if !cur.StartedAt.Equal(t0.Add(48 * time.Hour)) {
		t.Fatalf("started_at = %v, want %v", cur.StartedAt, t0.Add(48*time.Hour))
	}
	if !cur.DetectedAt.Equal(t0.Add(72 * time.Hour)) {
		t.Fatalf("detected_at = %v, want %v", cur.DetectedAt, t0.Add(72*time.Hour))
	}
}

func TestUpdateCapsHistory(t *testing.T) {
	userID := uuid.New()
	t0 := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	seed := &types.LifeStateDoc{UserID: userID}
	for i := 0; i < historyCap; i++ {
		seed.History = append(seed.History, types.StateTransition{
			StateID: fmt.Sprintf("state_%d", i),
		})
	}
	snap := &types.StateSnapshot{
		Primary:   types.StateScore{StateID: "waiting_mode", Label: "Holding pattern"},
		StartedAt: t0.Add(-24 * time.Hour),
	}
	seed.Current = datatypes.NewJSONType(snap)

	repo := &fakeStateRepo{doc: seed}
	m := newTestStateManager(t, repo)
	m.now = func() time.Time { return t0 }

	doc, _, err := m.Update(context.Background(), userID, detectionOf("flow_state"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(doc.History) != historyCap {
		t.Fatalf("history = %d entries, want capped at %d", len(doc.History), historyCap)
	}
	if doc.History[0].StateID != "waiting_mode" {
		t.Fatalf("newest transition = %s, want waiting_mode", doc.History[0].StateID)
	}
	if doc.History[historyCap-1].StateID != fmt.Sprintf("state_%d", historyCap-2) {
		t.Fatalf("oldest surviving transition = %s", doc.History[historyCap-1].StateID)
	}
}

func TestSimilarPastStates(t *testing.T) {
	doc := &types.LifeStateDoc{
		History: []types.StateTransition{
			{StateID: "waiting_mode", DurationDays: 9, Outcome: "job_searching"},
			{StateID: "burnout_risk", DurationDays: 4, Outcome: "healing"},
			{StateID: "waiting_mode", DurationDays: 3, Outcome: "flow_state"},
		},
	}
	got := SimilarPastStates(doc, "waiting_mode")
	if len(got) != 2 {
		t.Fatalf("similar past states = %d, want 2", len(got))
	}
	if got[0].DurationDays != 9 || got[1].DurationDays != 3 {
		t.Fatalf("wrong periods returned: %+v", got)
	}
	if SimilarPastStates(nil, "waiting_mode") != nil {
		t.Fatalf("nil doc must return nil")
	}
}
