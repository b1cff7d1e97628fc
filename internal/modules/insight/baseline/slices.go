package baseline

import (
	"regexp"
	"strings"
	"time"

	"github.com/yungbote/fathom-backend/internal/types"
)

// Minimum qualifying days before a contextual slice is worth keeping.
const (
	minStateDays    = 2
	minEntityDays   = 3
	minActivityDays = 3
	minWeekdayDays  = 2
)

// waitingMarkers flag days spent in a holding pattern, the one life-state
// slice computed directly from text.
var waitingMarkers = []string{
	"waiting", "pending", "limbo", "no word", "hasn't replied", "hasnt replied",
	"any day now", "still no answer", "on hold",
}

type dayRecord struct {
	day        time.Time
	weekday    time.Weekday
	text       string
	entities   map[string]bool
	activities map[string]bool
	moodSum    float64
	moodN      int
}

// Compute builds global and contextual baseline sets from the user's entry
// and biometric history. Contextual slices: "state:waiting" for
// holding-pattern days, "entity:<name>" for days mentioning a person,
// "activity:<name>" (plus a ":next_day" lagged variant) for activity days,
// and "day:<weekday>".
func Compute(entries []*types.Entry, bioDays []*types.BiometricDay) (types.BaselineSet, map[string]types.BaselineSet) {
	bioByDay := make(map[string]*types.BiometricDay, len(bioDays))
	for _, b := range bioDays {
		if b != nil {
			bioByDay[b.Key()] = b
		}
	}
	records := buildDayRecords(entries)

	global := setForDays(nil, records, bioByDay)
	contextual := map[string]types.BaselineSet{}

	// State slice: days whose text reads like waiting on an outcome.
	waitingDays := map[string]bool{}
	for key, rec := range records {
		if containsAny(rec.text, waitingMarkers) {
			waitingDays[key] = true
		}
	}
	if len(waitingDays) >= minStateDays {
		if set := setForDays(waitingDays, records, bioByDay); len(set) > 0 {
			contextual["state:waiting"] = set
		}
	}

	entityNames := map[string]bool{}
	activityNames := map[string]bool{}
	for _, rec := range records {
		for name := range rec.entities {
			entityNames[name] = true
		}
		for name := range rec.activities {
			activityNames[name] = true
		}
	}

	for name := range entityNames {
		days := qualifyingDays(records, name, func(rec *dayRecord) bool { return rec.entities[name] })
		if len(days) < minEntityDays {
			continue
		}
		if set := setForDays(days, records, bioByDay); len(set) > 0 {
			contextual["entity:"+name] = set
		}
	}

	for name := range activityNames {
		days := qualifyingDays(records, name, func(rec *dayRecord) bool { return rec.activities[name] })
		if len(days) < minActivityDays {
			continue
		}
		if set := setForDays(days, records, bioByDay); len(set) > 0 {
			contextual["activity:"+name] = set
		}
		// Lagged window: the same activity scored against the following
		// day's metrics, so sleep and recovery effects show up.
		next := map[string]bool{}
		for key := range days {
			if rec := records[key]; rec != nil {
				next[types.DayKey(rec.day.Add(24*time.Hour))] = true
			}
		}
		if set := setForDays(next, records, bioByDay); len(set) > 0 {
			contextual["activity:"+name+":next_day"] = set
		}
	}

	byWeekday := map[time.Weekday]map[string]bool{}
	addWeekday := func(wd time.Weekday, key string) {
		if byWeekday[wd] == nil {
			byWeekday[wd] = map[string]bool{}
		}
		byWeekday[wd][key] = true
	}
	for key, rec := range records {
		addWeekday(rec.weekday, key)
	}
	for key, bio := range bioByDay {
		addWeekday(bio.Day.UTC().Weekday(), key)
	}
	for wd, days := range byWeekday {
		if len(days) < minWeekdayDays {
			continue
		}
		if set := setForDays(days, records, bioByDay); len(set) > 0 {
			contextual["day:"+strings.ToLower(wd.String())] = set
		}
	}

	return global, contextual
}

func buildDayRecords(entries []*types.Entry) map[string]*dayRecord {
	records := map[string]*dayRecord{}
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		key := types.DayKey(entry.EffectiveAt)
		rec := records[key]
		if rec == nil {
			at := entry.EffectiveAt.UTC()
			midnight := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
			rec = &dayRecord{
				day:        midnight,
				weekday:    midnight.Weekday(),
				entities:   map[string]bool{},
				activities: map[string]bool{},
			}
			records[key] = rec
		}
		rec.text += " " + strings.ToLower(entry.Text)
		for _, raw := range entry.Tags {
			kind, value, ok := types.SplitTag(raw)
			if !ok {
				continue
			}
			switch kind {
			case "person", "people", "with":
				rec.entities[value] = true
			case "activity":
				rec.activities[value] = true
			}
		}
		if health := entry.Health.Data(); health != nil && health.Workout != nil {
			if kind := strings.ToLower(strings.TrimSpace(health.Workout.Kind)); kind != "" {
				rec.activities[kind] = true
			}
		}
		if entry.HasMood() {
			rec.moodSum += entry.MoodValue()
			rec.moodN++
		}
	}
	return records
}

// qualifyingDays collects days where either the tag predicate holds or the
// name appears in the day's text as a whole word.
func qualifyingDays(records map[string]*dayRecord, name string, tagged func(*dayRecord) bool) map[string]bool {
	re := wordPattern(name)
	days := map[string]bool{}
	for key, rec := range records {
		if tagged(rec) || (re != nil && re.MatchString(rec.text)) {
			days[key] = true
		}
	}
	return days
}

func wordPattern(name string) *regexp.Regexp {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return nil
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(name) + `\b`)
	if err != nil {
		return nil
	}
	return re
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// setForDays computes per-metric stats restricted to the given day keys.
// A nil day set means every known day. Mood is rescaled to 0..100 so its
// z-scores live on a comparable scale to the wearable metrics.
func setForDays(days map[string]bool, records map[string]*dayRecord, bioByDay map[string]*types.BiometricDay) types.BaselineSet {
	set := types.BaselineSet{}
	for _, metric := range types.BiometricMetrics {
		var samples []Sample
		for key, bio := range bioByDay {
			if days != nil && !days[key] {
				continue
			}
			if v := bio.Metric(metric); v != nil {
				samples = append(samples, Sample{Day: bio.Day, Value: *v})
			}
		}
		if st := ComputeStats(samples); st != nil {
			set[metric] = st
		}
	}

	var moodSamples []Sample
	for key, rec := range records {
		if days != nil && !days[key] {
			continue
		}
		if rec.moodN > 0 {
			moodSamples = append(moodSamples, Sample{Day: rec.day, Value: rec.moodSum / float64(rec.moodN) * 100})
		}
	}
	if st := ComputeStats(moodSamples); st != nil {
		set[types.MetricMood] = st
	}
	return set
}
