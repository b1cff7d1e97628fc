package sequences

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fathom-backend/internal/types"
)

const (
	// The first and last edgeSkip entries have no full neighbor window and
	// are never flagged.
	edgeSkip     = 3
	extremeDelta = 0.15
)

const (
	EventLow  = "low"
	EventHigh = "high"
)

// MoodEvent is a local mood extreme. Index points into the chronological
// scored series the detector built, not into the caller's slice.
type MoodEvent struct {
	Index   int
	EntryID uuid.UUID
	At      time.Time
	Mood    float64
	Kind    string
}

// scoredSeries filters to entries the user actually scored and orders
// them chronologically. Event indexes refer to this series.
func scoredSeries(entries []*types.Entry) []*types.Entry {
	series := make([]*types.Entry, 0, len(entries))
	for _, e := range entries {
		if e != nil && e.HasMood() {
			series = append(series, e)
		}
	}
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].EffectiveAt.Before(series[j].EffectiveAt)
	})
	return series
}

// DetectMoodEvents flags entries sitting at least extremeDelta below (or
// above) the mean of both their 3 preceding and 3 following scored
// neighbors.
func DetectMoodEvents(entries []*types.Entry) []MoodEvent {
	series := scoredSeries(entries)
	n := len(series)
	if n < 2*edgeSkip+1 {
		return nil
	}

	var events []MoodEvent
	for i := edgeSkip; i < n-edgeSkip; i++ {
		prev := meanMood(series[i-edgeSkip : i])
		next := meanMood(series[i+1 : i+1+edgeSkip])
		mood := series[i].MoodValue()

		var kind string
		switch {
		case prev-mood >= extremeDelta && next-mood >= extremeDelta:
			kind = EventLow
		case mood-prev >= extremeDelta && mood-next >= extremeDelta:
			kind = EventHigh
		default:
			continue
		}
		events = append(events, MoodEvent{
			Index:   i,
			EntryID: series[i].ID,
			At:      series[i].EffectiveAt,
			Mood:    mood,
			Kind:    kind,
		})
	}
	return events
}

func meanMood(entries []*types.Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range entries {
		sum += e.MoodValue()
	}
	return sum / float64(len(entries))
}
