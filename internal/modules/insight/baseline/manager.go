package baseline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/repos"
	"github.com/yungbote/fathom-backend/internal/types"
)

const (
	// StaleAfter is how long a computed baseline stays authoritative.
	StaleAfter = 24 * time.Hour
	// MinEntries gates recomputation; below this the user's norms are not
	// established yet and whatever doc exists (or nil) is returned as-is.
	MinEntries = 10
)

// Manager owns the per-user baseline document lifecycle.
type Manager struct {
	docs repos.BaselineDocRepo
	log  *logger.Logger
	now  func() time.Time
}

func NewManager(docs repos.BaselineDocRepo, baseLog *logger.Logger) *Manager {
	return &Manager{
		docs: docs,
		log:  baseLog.With("component", "baseline_manager"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Ensure returns the user's baseline doc, recomputing it first when it is
// missing or older than StaleAfter and the user has enough history. The
// bool reports whether a recomputation was persisted. When the sample gate
// fails, the existing doc (possibly nil or stale) is returned unchanged;
// callers treat that as unknown.
func (m *Manager) Ensure(ctx context.Context, userID uuid.UUID, entries []*types.Entry, bioDays []*types.BiometricDay) (*types.BaselineDoc, bool, error) {
	doc, err := m.docs.Get(ctx, nil, userID)
	if err != nil {
		return nil, false, err
	}
	now := m.now()
	if doc != nil && now.Sub(doc.ComputedAt) < StaleAfter {
		return doc, false, nil
	}
	if len(entries) < MinEntries {
		m.log.Debug("baseline gate not met", "user_id", userID, "entries", len(entries))
		return doc, false, nil
	}

	global, contextual := Compute(entries, bioDays)
	fresh := &types.BaselineDoc{
		UserID:     userID,
		Global:     datatypes.NewJSONType(global),
		Contextual: datatypes.NewJSONType(contextual),
		SampleSize: len(entries),
		ComputedAt: now,
	}
	if doc != nil {
		fresh.ID = doc.ID
		fresh.CreatedAt = doc.CreatedAt
	}
	if err := m.docs.Upsert(ctx, nil, fresh); err != nil {
		// Keep serving the last known good doc; the caller decides how
		// loudly to fail.
		return doc, false, err
	}
	m.log.Info("baseline recomputed",
		"user_id", userID,
		"entries", len(entries),
		"contextual_slices", len(contextual))
	return fresh, true, nil
}

// Invalidate backdates the stored doc so the next Ensure recomputes it
// regardless of the staleness window. Used after corrective entry edits.
// A user with no doc yet has nothing to invalidate.
func (m *Manager) Invalidate(ctx context.Context, userID uuid.UUID) error {
	doc, err := m.docs.Get(ctx, nil, userID)
	if err != nil || doc == nil {
		return err
	}
	doc.ComputedAt = time.Time{}
	return m.docs.Upsert(ctx, nil, doc)
}

// GlobalStats pulls one metric's stats out of a doc, nil when unknown.
func GlobalStats(doc *types.BaselineDoc, metric string) *types.MetricStats {
	if doc == nil {
		return nil
	}
	set := doc.Global.Data()
	if set == nil {
		return nil
	}
	return set[metric]
}

// ContextStats pulls one metric's stats for a contextual slice key.
func ContextStats(doc *types.BaselineDoc, slice, metric string) *types.MetricStats {
	if doc == nil {
		return nil
	}
	ctxSets := doc.Contextual.Data()
	if ctxSets == nil {
		return nil
	}
	set, ok := ctxSets[slice]
	if !ok {
		return nil
	}
	return set[metric]
}
