package rules

import (
	"sort"
	"strings"

	"github.com/yungbote/fathom-backend/internal/modules/insight/features"
)

// Item namespaces. Everything the miner sees is a flat categorical token;
// the prefix is what the plausibility filter keys on.
const (
	prefixDay     = "day:"
	prefixTime    = "time:"
	prefixSeason  = "season:"
	prefixWeather = "weather:"
)

// Free-standing flags without a namespace.
const (
	itemHoliday      = "holiday"
	itemAlone        = "alone"
	itemFirstMention = "first_mention"
	itemWorkout      = "workout"
	itemShortSleep   = "short_sleep"
	itemLongSleep    = "long_sleep"
	itemAfterGap     = "after_gap"
	itemDenseWeek    = "dense_week"
)

const (
	shortSleepBelow = 6.0
	longSleepFrom   = 9.0
	gapDaysFrom     = 3.0
	denseWeekFrom   = 5
)

// Itemize flattens a feature set into the sorted, deduplicated categorical
// items the miner counts. Linguistic counters stay out: they are ordinal,
// not categorical, and would need binning the mined rules could not
// explain back to the user.
func Itemize(fs features.FeatureSet) []string {
	items := make([]string, 0, 16)

	if fs.Temporal.DayOfWeek != "" {
		items = append(items, prefixDay+fs.Temporal.DayOfWeek)
	}
	if fs.Temporal.HourBucket != "" {
		items = append(items, prefixTime+fs.Temporal.HourBucket)
	}
	if fs.Temporal.Season != "" {
		items = append(items, prefixSeason+fs.Temporal.Season)
	}
	if fs.Temporal.Holiday {
		items = append(items, itemHoliday)
	}

	for _, p := range fs.Entities.People {
		items = append(items, "person:"+p)
	}
	for _, p := range fs.Entities.Places {
		items = append(items, "place:"+p)
	}
	for _, a := range fs.Entities.Activities {
		items = append(items, "activity:"+a)
	}
	for _, t := range fs.Entities.Topics {
		items = append(items, "topic:"+t)
	}
	if fs.Entities.IsAlone {
		items = append(items, itemAlone)
	}
	if len(fs.Entities.FirstMentions) > 0 {
		items = append(items, itemFirstMention)
	}

	if fs.Context.Weather != "" {
		items = append(items, prefixWeather+fs.Context.Weather)
	}
	if fs.Context.SleepHours != nil {
		switch {
		case *fs.Context.SleepHours < shortSleepBelow:
			items = append(items, itemShortSleep)
		case *fs.Context.SleepHours >= longSleepFrom:
			items = append(items, itemLongSleep)
		}
	}
	if fs.Context.Workout {
		items = append(items, itemWorkout)
	}
	if fs.Context.EntryType != "" {
		items = append(items, "type:"+fs.Context.EntryType)
	}

	if fs.Sequential.HasPrev && fs.Sequential.DaysSincePrev >= gapDaysFrom {
		items = append(items, itemAfterGap)
	}
	if fs.Sequential.EntriesLast7d >= denseWeekFrom {
		items = append(items, itemDenseWeek)
	}

	sort.Strings(items)
	return dedupSorted(items)
}

func dedupSorted(items []string) []string {
	out := items[:0]
	for i, it := range items {
		if i > 0 && it == items[i-1] {
			continue
		}
		out = append(out, it)
	}
	return out
}

// weakSinglePrefixes are contexts too ambient to stand alone as a rule:
// everyone has a tuesday and a winter. A single-item rule from one of
// these namespaces must be allow-listed to surface.
var weakSinglePrefixes = []string{prefixWeather, prefixDay, prefixTime, prefixSeason}

// plausibleSingles are the ambient singles with enough clinical backing to
// surface on their own (weather-mood and weekly-rhythm effects).
var plausibleSingles = map[string]bool{
	prefixWeather + "rainy":  true,
	prefixWeather + "gloomy": true,
	prefixDay + "monday":     true,
	prefixDay + "sunday":     true,
	prefixTime + "night":     true,
	prefixSeason + "winter":  true,
}

func plausible(items []string) bool {
	if len(items) != 1 {
		return true
	}
	for _, p := range weakSinglePrefixes {
		if strings.HasPrefix(items[0], p) {
			return plausibleSingles[items[0]]
		}
	}
	return true
}
