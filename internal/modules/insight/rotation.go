package insight

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/yungbote/fathom-backend/internal/types"
)

const (
	rotationMaxRecords = 5
	rotationTTL        = 24 * time.Hour
	rotationCooldown   = 24 * time.Hour
)

// rotationRecord marks one insight surfaced at the top of its category.
type rotationRecord struct {
	ID      string    `json:"id"`
	ShownAt time.Time `json:"shown_at"`
}

func encodeRotation(rec rotationRecord) string {
	b, _ := json.Marshal(rec)
	return string(b)
}

func decodeRotation(raws []string) []rotationRecord {
	out := make([]rotationRecord, 0, len(raws))
	for _, raw := range raws {
		var rec rotationRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.ID == "" {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// rotationScore ranks an active insight for the top slot. Base 100, with
// a heavy penalty while the show cooldown is open and a light one after,
// plus bounded bonuses for effect size, evidence volume and freshness.
// Records are newest first; only the most recent showing counts.
func rotationScore(in types.Insight, records []rotationRecord, now time.Time, jitter float64) float64 {
	score := 100.0
	for _, rec := range records {
		if rec.ID != in.ID {
			continue
		}
		if now.Sub(rec.ShownAt) < rotationCooldown {
			score -= 80
		} else {
			score -= 20
		}
		break
	}
	score += math.Min(math.Abs(in.Confidence)*50, 15)
	score += math.Min(float64(len(in.Evidence))*2, 10)
	if age := now.Sub(in.LastSeen); age >= 0 {
		score += math.Max(0, 5-age.Hours()/24)
	}
	return score + jitter
}

// orderForRotation sorts the active set for display, highest score first.
// Ties fall back to priority then title so the order stays deterministic
// when jitter is disabled.
func orderForRotation(active []types.Insight, records []rotationRecord, now time.Time, jitter func() float64) []types.Insight {
	if jitter == nil {
		jitter = func() float64 { return 0 }
	}
	type scored struct {
		in    types.Insight
		score float64
	}
	rows := make([]scored, 0, len(active))
	for _, in := range active {
		rows = append(rows, scored{in: in, score: rotationScore(in, records, now, jitter())})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		if rows[i].in.Priority != rows[j].in.Priority {
			return rows[i].in.Priority < rows[j].in.Priority
		}
		return rows[i].in.Title < rows[j].in.Title
	})
	out := make([]types.Insight, len(rows))
	for i, r := range rows {
		out[i] = r.in
	}
	return out
}
