package sequences

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fathom-backend/internal/types"
)

const (
	lowMoodBelow       = 0.35
	lowRunMin          = 2
	recoveredFrom      = 0.6
	recoveryWindowDays = 14
)

// Helper kinds.
const (
	HelperActivity = "activity"
	HelperPerson   = "person"
	HelperBehavior = "behavior"
)

type Helper struct {
	Name  string
	Kind  string
	Count int
}

// Recovery is one completed climb out of a low period.
type Recovery struct {
	LowStart      time.Time
	LowEnd        time.Time
	RecoveredAt   time.Time
	DaysToRecover float64
	EntryIDs      []uuid.UUID // improving window, recovered entry included
}

// RecoveryProfile is the ranked "what helps you recover" summary across
// every completed recovery in the window.
type RecoveryProfile struct {
	Recoveries       int
	AvgDaysToRecover float64
	Periods          []Recovery
	Helpers          []Helper
}

type helperKey struct {
	kind string
	name string
}

// AnalyzeRecoveries scans for low periods (two or more consecutive scored
// entries under lowMoodBelow) followed by a recovery (mood reaching
// recoveredFrom within the window) and aggregates what the user did while
// climbing back. A low period that never recovers contributes nothing.
func AnalyzeRecoveries(entries []*types.Entry) *RecoveryProfile {
	series := scoredSeries(entries)

	counts := map[helperKey]int{}
	var recoveries []Recovery
	var daySum float64

	i := 0
	for i < len(series) {
		if series[i].MoodValue() >= lowMoodBelow {
			i++
			continue
		}
		start := i
		for i < len(series) && series[i].MoodValue() < lowMoodBelow {
			i++
		}
		if i-start < lowRunMin {
			continue
		}
		lowEnd := i - 1

		deadline := series[lowEnd].EffectiveAt.Add(recoveryWindowDays * 24 * time.Hour)
		recoveredIdx := -1
		for j := i; j < len(series); j++ {
			if series[j].EffectiveAt.After(deadline) {
				break
			}
			if series[j].MoodValue() >= recoveredFrom {
				recoveredIdx = j
				break
			}
		}
		if recoveredIdx < 0 {
			continue
		}

		rec := Recovery{
			LowStart:    series[start].EffectiveAt,
			LowEnd:      series[lowEnd].EffectiveAt,
			RecoveredAt: series[recoveredIdx].EffectiveAt,
		}
		rec.DaysToRecover = rec.RecoveredAt.Sub(rec.LowStart).Hours() / 24

		// Each helper counts once per recovery, however often it was
		// mentioned during the climb.
		present := map[helperKey]bool{}
		for k := i; k <= recoveredIdx; k++ {
			e := series[k]
			rec.EntryIDs = append(rec.EntryIDs, e.ID)
			collectHelpers(e, present)
		}
		for key := range present {
			counts[key]++
		}

		recoveries = append(recoveries, rec)
		daySum += rec.DaysToRecover
		i = recoveredIdx + 1
	}

	if len(recoveries) == 0 {
		return nil
	}

	profile := &RecoveryProfile{
		Recoveries:       len(recoveries),
		AvgDaysToRecover: daySum / float64(len(recoveries)),
		Periods:          recoveries,
	}
	for key, n := range counts {
		profile.Helpers = append(profile.Helpers, Helper{Name: key.name, Kind: key.kind, Count: n})
	}
	sort.Slice(profile.Helpers, func(a, b int) bool {
		ha, hb := profile.Helpers[a], profile.Helpers[b]
		if ha.Count != hb.Count {
			return ha.Count > hb.Count
		}
		if ha.Kind != hb.Kind {
			return ha.Kind < hb.Kind
		}
		return ha.Name < hb.Name
	})
	return profile
}

func collectHelpers(e *types.Entry, into map[helperKey]bool) {
	for _, raw := range e.Tags {
		kind, value, ok := types.SplitTag(raw)
		if !ok {
			continue
		}
		switch kind {
		case "activity":
			into[helperKey{HelperActivity, value}] = true
		case "person", "people", "with":
			into[helperKey{HelperPerson, value}] = true
		}
	}
	for _, word := range wordsOf(e.Text) {
		if label, ok := copingKeywords[word]; ok {
			into[helperKey{HelperBehavior, label}] = true
		}
	}
}

func wordsOf(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return false
		default:
			return true
		}
	})
}

// copingKeywords maps journal vocabulary to the canonical behavior shown
// in the recovery profile.
var copingKeywords = map[string]string{
	"walk":       "walking",
	"walked":     "walking",
	"walking":    "walking",
	"hike":       "hiking",
	"hiked":      "hiking",
	"run":        "running",
	"ran":        "running",
	"running":    "running",
	"gym":        "exercise",
	"workout":    "exercise",
	"exercise":   "exercise",
	"exercised":  "exercise",
	"yoga":       "yoga",
	"meditate":   "meditation",
	"meditated":  "meditation",
	"meditation": "meditation",
	"breathing":  "breathwork",
	"therapy":    "therapy",
	"therapist":  "therapy",
	"counselor":  "therapy",
	"journal":    "journaling",
	"journaled":  "journaling",
	"journaling": "journaling",
	"music":      "music",
	"singing":    "music",
	"nature":     "time in nature",
	"outside":    "time outside",
	"sunshine":   "time outside",
	"slept":      "sleep",
	"nap":        "rest",
	"napped":     "rest",
	"rested":     "rest",
	"talked":     "talking it out",
	"vented":     "talking it out",
	"called":     "reaching out",
	"texted":     "reaching out",
	"read":       "reading",
	"reading":    "reading",
	"cooked":     "cooking",
	"cooking":    "cooking",
	"baked":      "cooking",
}
