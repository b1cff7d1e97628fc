package lifestate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/repos"
	"github.com/yungbote/fathom-backend/internal/types"
)

// historyCap bounds the transition log; oldest periods fall off.
const historyCap = 20

// Manager owns the per-user life-state document.
type Manager struct {
	docs repos.LifeStateDocRepo
	log  *logger.Logger
	now  func() time.Time
}

func NewManager(docs repos.LifeStateDocRepo, baseLog *logger.Logger) *Manager {
	return &Manager{
		docs: docs,
		log:  baseLog.With("component", "state_manager"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Update applies a fresh detection. A primary-state change archives the
// outgoing period into history with the incoming state as its outcome; an
// unchanged primary just refreshes confidence, secondaries and the
// detection timestamp, preserving StartedAt so duration keeps accruing.
// The bool reports whether the primary state changed.
func (m *Manager) Update(ctx context.Context, userID uuid.UUID, det Detection) (*types.LifeStateDoc, bool, error) {
	doc, err := m.docs.Get(ctx, nil, userID)
	if err != nil {
		return nil, false, err
	}
	if doc == nil {
		doc = &types.LifeStateDoc{UserID: userID}
	}
	now := m.now()
	cur := doc.Current.Data()

	changed := cur == nil || cur.Primary.StateID != det.Primary.StateID
	if changed {
		if cur != nil {
			transition := types.StateTransition{
				StateID:      cur.Primary.StateID,
				Label:        cur.Primary.Label,
				Confidence:   cur.Primary.Confidence,
				StartedAt:    cur.StartedAt,
				EndedAt:      now,
				DurationDays: now.Sub(cur.StartedAt).Hours() / 24,
				Outcome:      det.Primary.StateID,
			}
			history := append(datatypes.JSONSlice[types.StateTransition]{transition}, doc.History...)
			if len(history) > historyCap {
				history = history[:historyCap]
			}
			doc.History = history
			m.log.Info("life state transition",
				"user_id", userID,
				"from", transition.StateID,
				"to", det.Primary.StateID,
				"duration_days", transition.DurationDays)
		}
		doc.Current = datatypes.NewJSONType(&types.StateSnapshot{
			Primary:    det.Primary,
			Secondary:  det.Secondary,
			StartedAt:  now,
			DetectedAt: now,
		})
	} else {
		doc.Current = datatypes.NewJSONType(&types.StateSnapshot{
			Primary:    det.Primary,
			Secondary:  det.Secondary,
			StartedAt:  cur.StartedAt,
			DetectedAt: now,
		})
	}

	if err := m.docs.Upsert(ctx, nil, doc); err != nil {
		return nil, changed, err
	}
	return doc, changed, nil
}

// SimilarPastStates returns archived periods of the given state, newest
// first, for comparative narration ("last time this lasted nine days").
func SimilarPastStates(doc *types.LifeStateDoc, stateID string) []types.StateTransition {
	if doc == nil || stateID == "" {
		return nil
	}
	var out []types.StateTransition
	for _, tr := range doc.History {
		if tr.StateID == stateID {
			out = append(out, tr)
		}
	}
	return out
}

// CurrentDurationDays reports how long the current primary state has held.
func CurrentDurationDays(doc *types.LifeStateDoc, now time.Time) float64 {
	if doc == nil {
		return 0
	}
	cur := doc.Current.Data()
	if cur == nil {
		return 0
	}
	return now.Sub(cur.StartedAt).Hours() / 24
}
