package threads

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

type fakeThreadRepo struct {
	rows map[uuid.UUID]*types.Thread
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{rows: map[uuid.UUID]*types.Thread{}}
}

func (f *fakeThreadRepo) Create(ctx context.Context, tx *gorm.DB, th *types.Thread) (*types.Thread, error) {
	if th.ID == uuid.Nil {
		th.ID = uuid.New()
	}
	if th.RootID == uuid.Nil {
		th.RootID = th.ID
	}
	f.rows[th.ID] = th
	return th, nil
}

func (f *fakeThreadRepo) Update(ctx context.Context, tx *gorm.DB, th *types.Thread) error {
	f.rows[th.ID] = th
	return nil
}

func (f *fakeThreadRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, threadID uuid.UUID) (*types.Thread, error) {
	th, ok := f.rows[threadID]
	if !ok || th.UserID != userID {
		return nil, nil
	}
	return th, nil
}

func (f *fakeThreadRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Thread, error) {
	var out []*types.Thread
	for _, th := range f.rows {
		if th.UserID == userID {
			out = append(out, th)
		}
	}
	return out, nil
}

func (f *fakeThreadRepo) ListByStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) ([]*types.Thread, error) {
	var out []*types.Thread
	for _, th := range f.rows {
		if th.UserID == userID && th.Status == status {
			out = append(out, th)
		}
	}
	return out, nil
}

func newTestThreadManager(t *testing.T, repo *fakeThreadRepo) *Manager {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewManager(nil, repo, log)
}

func TestMatchPrecedence(t *testing.T) {
	byEmbedding := &types.Thread{
		ID:             uuid.New(),
		NormalizedName: "the job hunt",
		Category:       "career",
		Embedding:      []float32{1, 0},
	}
	byName := &types.Thread{
		ID:             uuid.New(),
		NormalizedName: "marathon training",
		Category:       "health",
	}
	active := []*types.Thread{byEmbedding, byName}

	// Cosine 0.8 against the career thread wins on the embedding rule.
	m := MatchCandidate(active, Candidate{
		Name:      "career stuff",
		Category:  "career",
		Embedding: []float32{0.8, 0.6},
	})
	if m.Thread != byEmbedding || m.Rule != MatchRuleEmbedding {
		t.Fatalf("match = %+v, want embedding continuation", m)
	}
	if math.Abs(m.Similarity-0.8) > 1e-6 {
		t.Fatalf("similarity = %v, want 0.8", m.Similarity)
	}

	// No embedding: an exact normalized name still continues.
	m = MatchCandidate(active, Candidate{Name: "Marathon  Training", Category: "health"})
	if m.Thread != byName || m.Rule != MatchRuleName {
		t.Fatalf("match = %+v, want name continuation", m)
	}

	// Cosine 0.6 in the same category: evolution candidate, never a merge.
	m = MatchCandidate(active, Candidate{
		Name:      "new chapter at work",
		Category:  "career",
		Embedding: []float32{0.6, 0.8},
	})
	if m.Thread != nil || m.Rule != MatchRuleNew {
		t.Fatalf("match = %+v, want new thread", m)
	}
	if len(m.Evolution) != 1 || m.Evolution[0].Thread != byEmbedding {
		t.Fatalf("evolution candidates = %+v, want the career thread", m.Evolution)
	}

	// Same band but different category: no evolution candidate.
	m = MatchCandidate(active, Candidate{
		Name:      "knee rehab",
		Category:  "somatic",
		Embedding: []float32{0.6, 0.8},
	})
	if len(m.Evolution) != 0 {
		t.Fatalf("cross-category evolution candidates = %+v, want none", m.Evolution)
	}
}

func TestObserveContinuesAndCapsSentiment(t *testing.T) {
	repo := newFakeThreadRepo()
	m := newTestThreadManager(t, repo)
	userID := uuid.New()
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	var last *types.Thread
	for i := 0; i < 12; i++ {
		th, _, err := m.Observe(context.Background(), userID, Candidate{
			Name:      "gym routine",
			Category:  "health",
			Sentiment: float64(i) / 100,
			EntryID:   uuid.New(),
			At:        base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Observe %d: %v", i, err)
		}
		last = th
	}

	if len(repo.rows) != 1 {
		t.Fatalf("threads created = %d, want 1 (same name must continue)", len(repo.rows))
	}
	if len(last.SentimentHistory) != sentimentHistoryCap {
		t.Fatalf("sentiment history = %d values, want %d", len(last.SentimentHistory), sentimentHistoryCap)
	}
	// Last ten of 0.00..0.11 are 0.02..0.11.
	if last.SentimentHistory[0] != 0.02 || last.SentimentHistory[9] != 0.11 {
		t.Fatalf("ring kept wrong values: %v", last.SentimentHistory)
	}
	wantBaseline := 0.065
	if math.Abs(last.SentimentBaseline-wantBaseline) > 1e-9 {
		t.Fatalf("baseline = %v, want %v", last.SentimentBaseline, wantBaseline)
	}
	if len(last.EmotionalArc) != 12 {
		t.Fatalf("emotional arc = %d points, want 12 (append-only)", len(last.EmotionalArc))
	}
}

func TestObserveEvictsStalestAtCap(t *testing.T) {
	repo := newFakeThreadRepo()
	m := newTestThreadManager(t, repo)
	userID := uuid.New()
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	var oldest *types.Thread
	for i := 0; i < MaxActiveThreads; i++ {
		th, _, err := m.Observe(context.Background(), userID, Candidate{
			Name:      fmt.Sprintf("storyline number %d", i),
			Category:  "growth",
			Sentiment: 0.5,
			EntryID:   uuid.New(),
			At:        base.Add(time.Duration(i) * 24 * time.Hour),
		})
		if err != nil {
			t.Fatalf("seed Observe %d: %v", i, err)
		}
		if i == 0 {
			oldest = th
		}
	}

	_, match, err := m.Observe(context.Background(), userID, Candidate{
		Name:      "a completely unrelated concern",
		Category:  "financial",
		Sentiment: 0.4,
		EntryID:   uuid.New(),
		At:        base.Add(30 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Observe over cap: %v", err)
	}
	if match.Rule != MatchRuleNew {
		t.Fatalf("rule = %s, want new", match.Rule)
	}

	active, _ := repo.ListByStatus(context.Background(), nil, userID, types.ThreadStatusActive)
	if len(active) != MaxActiveThreads {
		t.Fatalf("active threads = %d, want %d", len(active), MaxActiveThreads)
	}
	if oldest.Status != types.ThreadStatusResolved {
		t.Fatalf("stalest thread status = %s, want resolved", oldest.Status)
	}
}

func TestMetamorphoseSetsSuccessorOnce(t *testing.T) {
	repo := newFakeThreadRepo()
	m := newTestThreadManager(t, repo)
	userID := uuid.New()
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	pred, _, err := m.Observe(context.Background(), userID, Candidate{
		Name:      "job search",
		Category:  "career",
		Sentiment: 0.4,
		EntryID:   uuid.New(),
		At:        base,
	})
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}

	succ, err := m.Metamorphose(context.Background(), userID, pred.ID, Candidate{
		Name:      "new role at northwind",
		Category:  "career",
		Sentiment: 0.7,
		EntryID:   uuid.New(),
		At:        base.Add(40 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Metamorphose: %v", err)
	}
	if succ.PredecessorID == nil || *succ.PredecessorID != pred.ID {
		t.Fatalf("successor predecessor_id = %v, want %v", succ.PredecessorID, pred.ID)
	}
	if succ.RootID != pred.RootID {
		t.Fatalf("successor root_id = %v, want inherited %v", succ.RootID, pred.RootID)
	}
	if pred.Status != types.ThreadStatusEvolved {
		t.Fatalf("predecessor status = %s, want evolved", pred.Status)
	}
	if pred.SuccessorID == nil || *pred.SuccessorID != succ.ID {
		t.Fatalf("predecessor successor_id = %v, want %v", pred.SuccessorID, succ.ID)
	}

	// The transition is one-shot and irreversible.
	if _, err := m.Metamorphose(context.Background(), userID, pred.ID, Candidate{Name: "again", Category: "career"}); err == nil {
		t.Fatalf("second metamorphosis of an evolved thread must fail")
	}
	if _, err := m.Resolve(context.Background(), userID, pred.ID); err == nil {
		t.Fatalf("resolving an evolved thread must fail")
	}

	// A resolved thread cannot evolve either.
	resolved, err := m.Resolve(context.Background(), userID, succ.ID)
	if err != nil {
		t.Fatalf("Resolve successor: %v", err)
	}
	if resolved.Status != types.ThreadStatusResolved {
		t.Fatalf("successor status = %s, want resolved", resolved.Status)
	}
	if _, err := m.Metamorphose(context.Background(), userID, succ.ID, Candidate{Name: "zombie", Category: "career"}); err == nil {
		t.Fatalf("metamorphosing a resolved thread must fail")
	}
}
