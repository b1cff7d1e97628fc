package threads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viterin/vek/vek32"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/repos"
	"github.com/yungbote/fathom-backend/internal/types"
)

const (
	sentimentHistoryCap = 10

	// Blend factor for folding a fresh embedding into a thread's stored
	// one: enough to track drift without losing the storyline's identity.
	embedBlend float32 = 0.3
)

// Manager owns storyline lifecycle: matching, continuation, resolution and
// metamorphosis.
type Manager struct {
	db      *gorm.DB
	threads repos.ThreadRepo
	log     *logger.Logger
	now     func() time.Time
}

func NewManager(db *gorm.DB, threadRepo repos.ThreadRepo, baseLog *logger.Logger) *Manager {
	return &Manager{
		db:      db,
		threads: threadRepo,
		log:     baseLog.With("component", "thread_manager"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Active lists the user's active threads, most recently touched first.
func (m *Manager) Active(ctx context.Context, userID uuid.UUID) ([]*types.Thread, error) {
	return m.threads.ListByStatus(ctx, nil, userID, types.ThreadStatusActive)
}

// Observe routes one storyline observation: continue a matched thread or
// start a new one, evicting the stalest active thread when the set is full.
// The returned Match carries any evolution candidates for the caller to
// hand to classification; they are never merged here.
func (m *Manager) Observe(ctx context.Context, userID uuid.UUID, cand Candidate) (*types.Thread, Match, error) {
	active, err := m.threads.ListByStatus(ctx, nil, userID, types.ThreadStatusActive)
	if err != nil {
		return nil, Match{}, err
	}

	match := MatchCandidate(active, cand)
	if match.Thread != nil {
		m.appendObservation(match.Thread, cand)
		if err := m.threads.Update(ctx, nil, match.Thread); err != nil {
			return nil, match, err
		}
		return match.Thread, match, nil
	}

	if len(active) >= MaxActiveThreads {
		stalest := active[0]
		for _, th := range active[1:] {
			if th.LastEntryAt.Before(stalest.LastEntryAt) {
				stalest = th
			}
		}
		stalest.Status = types.ThreadStatusResolved
		if err := m.threads.Update(ctx, nil, stalest); err != nil {
			return nil, match, err
		}
		m.log.Info("auto-resolved stalest thread to stay under cap",
			"user_id", userID,
			"thread_id", stalest.ID,
			"last_entry_at", stalest.LastEntryAt)
	}

	created, err := m.threads.Create(ctx, nil, m.newThread(userID, cand))
	if err != nil {
		return nil, match, err
	}
	return created, match, nil
}

func (m *Manager) newThread(userID uuid.UUID, cand Candidate) *types.Thread {
	name := strings.TrimSpace(cand.Name)
	sentiment := clamp01(cand.Sentiment)
	at := cand.At
	if at.IsZero() {
		at = m.now()
	}
	return &types.Thread{
		UserID:            userID,
		DisplayName:       name,
		NormalizedName:    NormalizeName(name),
		Category:          NormalizeCategory(cand.Category),
		Status:            types.ThreadStatusActive,
		SentimentHistory:  []float64{sentiment},
		SentimentBaseline: sentiment,
		Trajectory:        types.TrajectoryStable,
		EmotionalArc: []types.ArcPoint{{
			EntryID:   cand.EntryID,
			Sentiment: sentiment,
			Note:      cand.Note,
			At:        at,
		}},
		EntryIDs:    []uuid.UUID{cand.EntryID},
		Embedding:   cand.Embedding,
		LastEntryAt: at,
	}
}

func (m *Manager) appendObservation(th *types.Thread, cand Candidate) {
	sentiment := clamp01(cand.Sentiment)
	at := cand.At
	if at.IsZero() {
		at = m.now()
	}

	history := append([]float64(th.SentimentHistory), sentiment)
	if len(history) > sentimentHistoryCap {
		history = history[len(history)-sentimentHistoryCap:]
	}
	th.SentimentHistory = history
	th.SentimentBaseline = mean(history)
	th.Trajectory = ClassifyTrajectory(history)

	th.EmotionalArc = append(th.EmotionalArc, types.ArcPoint{
		EntryID:   cand.EntryID,
		Sentiment: sentiment,
		Note:      cand.Note,
		At:        at,
	})
	if !containsID(th.EntryIDs, cand.EntryID) {
		th.EntryIDs = append(th.EntryIDs, cand.EntryID)
	}
	th.Embedding = blendEmbedding(th.Embedding, cand.Embedding)
	if at.After(th.LastEntryAt) {
		th.LastEntryAt = at
	}
}

// Recalibrate recomputes sentiment baselines and trajectories for every
// active thread from stored history. Used by reassessment after corrective
// edits; observations themselves are never rewritten, only derived fields.
func (m *Manager) Recalibrate(ctx context.Context, userID uuid.UUID) (int, error) {
	active, err := m.Active(ctx, userID)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, th := range active {
		history := []float64(th.SentimentHistory)
		if len(history) == 0 {
			continue
		}
		baseline := mean(history)
		trajectory := ClassifyTrajectory(history)
		if baseline == th.SentimentBaseline && trajectory == th.Trajectory {
			continue
		}
		th.SentimentBaseline = baseline
		th.Trajectory = trajectory
		if err := m.threads.Update(ctx, nil, th); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// Resolve terminally closes an active thread. Resolving twice is a no-op;
// an evolved thread already handed its storyline to a successor and cannot
// be resolved again under a different terminal status.
func (m *Manager) Resolve(ctx context.Context, userID, threadID uuid.UUID) (*types.Thread, error) {
	th, err := m.threads.GetByID(ctx, nil, userID, threadID)
	if err != nil {
		return nil, err
	}
	if th == nil {
		return nil, fmt.Errorf("thread %s not found", threadID)
	}
	switch th.Status {
	case types.ThreadStatusResolved:
		return th, nil
	case types.ThreadStatusEvolved:
		return nil, fmt.Errorf("thread %s already evolved and cannot be resolved", threadID)
	}
	th.Status = types.ThreadStatusResolved
	if err := m.threads.Update(ctx, nil, th); err != nil {
		return nil, err
	}
	return th, nil
}

// Metamorphose spawns a successor storyline from an active predecessor.
// The predecessor flips to evolved with its successor id set exactly once;
// both writes happen in one transaction so the lineage can never dangle.
func (m *Manager) Metamorphose(ctx context.Context, userID, predecessorID uuid.UUID, cand Candidate) (*types.Thread, error) {
	pred, err := m.threads.GetByID(ctx, nil, userID, predecessorID)
	if err != nil {
		return nil, err
	}
	if pred == nil {
		return nil, fmt.Errorf("thread %s not found", predecessorID)
	}
	if pred.Status != types.ThreadStatusActive {
		return nil, fmt.Errorf("thread %s is %s and cannot evolve", predecessorID, pred.Status)
	}
	if pred.SuccessorID != nil {
		return nil, fmt.Errorf("thread %s already has a successor", predecessorID)
	}

	succ := m.newThread(userID, cand)
	succ.RootID = pred.RootID
	succ.PredecessorID = &pred.ID

	err = m.withTx(ctx, func(tx *gorm.DB) error {
		created, err := m.threads.Create(ctx, tx, succ)
		if err != nil {
			return err
		}
		pred.Status = types.ThreadStatusEvolved
		pred.SuccessorID = &created.ID
		return m.threads.Update(ctx, tx, pred)
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("thread metamorphosis",
		"user_id", userID,
		"predecessor_id", pred.ID,
		"successor_id", succ.ID,
		"root_id", pred.RootID)
	return succ, nil
}

// withTx wraps fn in a transaction; a nil db runs it unwrapped.
func (m *Manager) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if m.db == nil {
		return fn(nil)
	}
	return m.db.WithContext(ctx).Transaction(fn)
}

// Lineage returns every generation of one storyline, oldest first.
func (m *Manager) Lineage(ctx context.Context, userID, rootID uuid.UUID) ([]*types.Thread, error) {
	all, err := m.threads.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	var chain []*types.Thread
	for _, th := range all {
		if th.RootID == rootID {
			chain = append(chain, th)
		}
	}
	// Oldest first: walk created order via predecessor links when present.
	for i := 0; i < len(chain); i++ {
		for j := i + 1; j < len(chain); j++ {
			if chain[j].SuccessorID != nil && *chain[j].SuccessorID == chain[i].ID {
				chain[i], chain[j] = chain[j], chain[i]
			}
		}
	}
	return chain, nil
}

// NormalizeCategory maps arbitrary input onto the fixed taxonomy, falling
// back to growth when nothing matches.
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	for _, known := range types.ThreadCategories {
		if c == known {
			return known
		}
	}
	return "growth"
}

func blendEmbedding(old, fresh []float32) []float32 {
	if len(fresh) == 0 {
		return old
	}
	if len(old) == 0 || len(old) != len(fresh) {
		return fresh
	}
	blended := make([]float32, len(old))
	copy(blended, old)
	vek32.MulNumber_Inplace(blended, 1-embedBlend)
	vek32.Add_Inplace(blended, vek32.MulNumber(fresh, embedBlend))
	return blended
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
