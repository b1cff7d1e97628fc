package services

import (
	"context"

	"github.com/yungbote/fathom-backend/internal/clients/openai"
	"github.com/yungbote/fathom-backend/internal/modules/insight/threads"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

// Tag kinds that open or continue a storyline. Weather and similar
// ambient tags never become threads.
var threadTagCategories = map[string]string{
	"person":   "relationship",
	"topic":    "growth",
	"place":    "housing",
	"activity": "health",
}

const maxCandidateNote = 120

// ThreadTracker distills storyline observations from new entries and
// routes them through the thread manager. Embeddings are best-effort:
// without a model client, matching falls back to name similarity.
type ThreadTracker struct {
	threads *threads.Manager
	ai      openai.Client
	log     *logger.Logger
}

func NewThreadTracker(mgr *threads.Manager, ai openai.Client, baseLog *logger.Logger) *ThreadTracker {
	return &ThreadTracker{
		threads: mgr,
		ai:      ai,
		log:     baseLog.With("component", "ThreadTracker"),
	}
}

// Track observes every thread-worthy tag on the entry. Failures are
// logged per candidate; the entry itself is already persisted.
func (t *ThreadTracker) Track(ctx context.Context, entry *types.Entry) {
	if t == nil || entry == nil {
		return
	}
	cands := t.candidates(ctx, entry)
	for _, cand := range cands {
		if _, _, err := t.threads.Observe(ctx, entry.UserID, cand); err != nil {
			t.log.Warn("thread observation failed",
				"user_id", entry.UserID.String(), "name", cand.Name, "error", err)
		}
	}
}

func (t *ThreadTracker) candidates(ctx context.Context, entry *types.Entry) []threads.Candidate {
	var cands []threads.Candidate
	note := entry.Text
	if len(note) > maxCandidateNote {
		note = note[:maxCandidateNote]
	}
	for _, raw := range entry.Tags {
		kind, value, ok := types.SplitTag(raw)
		if !ok {
			continue
		}
		category, tracked := threadTagCategories[kind]
		if !tracked {
			continue
		}
		cands = append(cands, threads.Candidate{
			Name:      value,
			Category:  category,
			Sentiment: entry.MoodValue(),
			EntryID:   entry.ID,
			Note:      note,
			At:        entry.EffectiveAt,
		})
	}
	if len(cands) == 0 || t.ai == nil {
		return cands
	}

	inputs := make([]string, len(cands))
	for i, c := range cands {
		inputs[i] = c.Name + ": " + c.Note
	}
	vecs, err := t.ai.Embed(ctx, inputs)
	if err != nil {
		t.log.Debug("candidate embedding failed, using name matching", "error", err)
		return cands
	}
	for i := range cands {
		if i < len(vecs) {
			cands[i].Embedding = vecs[i]
		}
	}
	return cands
}
