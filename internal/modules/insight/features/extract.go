package features

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fathom-backend/internal/types"
)

// FeatureSet is the structured record one entry reduces to. Extraction is
// a pure function of (entry, prior corpus, optional biometric day):
// identical inputs always produce identical output.
type FeatureSet struct {
	EntryID uuid.UUID
	At      time.Time
	Mood    float64
	HasMood bool

	Temporal   Temporal
	Entities   Entities
	Context    Context
	Linguistic Linguistic
	Sequential Sequential
}

type Temporal struct {
	DayOfWeek  string // lowercase weekday name
	HourBucket string // morning|afternoon|evening|night
	WeekOfYear int
	Season     string // winter|spring|summer|autumn
	Holiday    bool
}

type Entities struct {
	People     []string
	Places     []string
	Activities []string
	Topics     []string
	IsAlone    bool
	// FirstMentions lists "kind:value" keys that appear in this entry and
	// in none of the prior corpus.
	FirstMentions []string
}

type Context struct {
	Weather      string
	SleepHours   *float64
	SleepQuality string
	Workout      bool
	EntryType    string // from a "type:x" tag, "" when untyped
}

type Linguistic struct {
	WordCount       int
	SentenceCount   int
	SelfReferences  int
	PositiveHits    int
	NegativeHits    int
	ObligationHits  int
	UncertaintyHits int
}

type Sequential struct {
	HasPrev        bool
	DaysSincePrev  float64
	HasMoodDelta   bool
	MoodDelta      float64
	HasRollingMood bool
	RollingMood3d  float64
	EntriesLast7d  int
}

// Extract reduces one entry to its feature set. prior must contain only
// entries with EffectiveAt strictly before the entry's, in any order; bio
// may be nil.
func Extract(entry *types.Entry, prior []*types.Entry, bio *types.BiometricDay) FeatureSet {
	fs := FeatureSet{
		EntryID: entry.ID,
		At:      entry.EffectiveAt,
		Mood:    entry.MoodValue(),
		HasMood: entry.HasMood(),
	}
	fs.Temporal = extractTemporal(entry.EffectiveAt)
	fs.Entities = extractEntities(entry, prior)
	fs.Context = extractContext(entry, bio)
	fs.Linguistic = extractLinguistic(entry.Text)
	fs.Sequential = extractSequential(entry, prior)
	return fs
}

// -------------------- temporal --------------------

func extractTemporal(at time.Time) Temporal {
	_, week := at.ISOWeek()
	return Temporal{
		DayOfWeek:  strings.ToLower(at.Weekday().String()),
		HourBucket: hourBucket(at.Hour()),
		WeekOfYear: week,
		Season:     season(at.Month()),
		Holiday:    isHoliday(at),
	}
}

func hourBucket(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 22:
		return "evening"
	default:
		return "night"
	}
}

func season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "autumn"
	}
}

// fixedHolidays maps month -> day for holidays that fall on the calendar
// date every year. Thanksgiving is handled separately.
var fixedHolidays = map[time.Month][]int{
	time.January:  {1},
	time.July:     {4},
	time.October:  {31},
	time.December: {24, 25, 31},
}

func isHoliday(at time.Time) bool {
	for _, d := range fixedHolidays[at.Month()] {
		if at.Day() == d {
			return true
		}
	}
	// Fourth Thursday of November.
	if at.Month() == time.November && at.Weekday() == time.Thursday {
		if n := (at.Day()-1)/7 + 1; n == 4 {
			return true
		}
	}
	return false
}

// -------------------- entities --------------------

func extractEntities(entry *types.Entry, prior []*types.Entry) Entities {
	var ents Entities
	keys := make([]string, 0, len(entry.Tags))
	for _, tag := range entry.Tags {
		kind, value, ok := splitTag(tag)
		if !ok {
			continue
		}
		switch kind {
		case "person", "people", "with":
			ents.People = appendUnique(ents.People, value)
			keys = append(keys, "person:"+value)
		case "place", "location":
			ents.Places = appendUnique(ents.Places, value)
			keys = append(keys, "place:"+value)
		case "activity":
			ents.Activities = appendUnique(ents.Activities, value)
			keys = append(keys, "activity:"+value)
		case "topic":
			ents.Topics = appendUnique(ents.Topics, value)
			keys = append(keys, "topic:"+value)
		}
	}
	ents.IsAlone = len(ents.People) == 0

	seen := map[string]bool{}
	for _, p := range prior {
		for _, tag := range p.Tags {
			kind, value, ok := splitTag(tag)
			if !ok {
				continue
			}
			switch kind {
			case "person", "people", "with":
				seen["person:"+value] = true
			case "place", "location":
				seen["place:"+value] = true
			case "activity":
				seen["activity:"+value] = true
			case "topic":
				seen["topic:"+value] = true
			}
		}
	}
	for _, key := range keys {
		if !seen[key] {
			ents.FirstMentions = append(ents.FirstMentions, key)
		}
	}
	return ents
}

func splitTag(tag string) (kind, value string, ok bool) {
	return types.SplitTag(tag)
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// -------------------- context --------------------

func extractContext(entry *types.Entry, bio *types.BiometricDay) Context {
	var c Context
	for _, tag := range entry.Tags {
		kind, value, ok := splitTag(tag)
		if !ok {
			continue
		}
		switch kind {
		case "weather":
			c.Weather = value
		case "type":
			c.EntryType = value
		case "activity":
			if workoutActivities[value] {
				c.Workout = true
			}
		}
	}
	if snap := entry.Health.Data(); snap != nil {
		if snap.SleepHours != nil {
			c.SleepHours = snap.SleepHours
		}
		if snap.SleepQuality != nil {
			c.SleepQuality = strings.ToLower(*snap.SleepQuality)
		}
		if snap.Workout != nil {
			c.Workout = true
		}
	}
	if c.SleepHours == nil && bio != nil && bio.SleepHours != nil {
		c.SleepHours = bio.SleepHours
	}
	return c
}

// -------------------- linguistic --------------------

func extractLinguistic(text string) Linguistic {
	var l Linguistic
	normalized := strings.ToLower(text)
	tokens := tokenize(normalized)
	l.WordCount = len(tokens)
	l.SentenceCount = countSentences(text)
	for _, tok := range tokens {
		if selfReferenceWords[tok] {
			l.SelfReferences++
		}
		if positiveWords[tok] {
			l.PositiveHits++
		}
		if negativeWords[tok] {
			l.NegativeHits++
		}
		if obligationWords[tok] {
			l.ObligationHits++
		}
		if uncertaintyWords[tok] {
			l.UncertaintyHits++
		}
	}
	for _, phrase := range obligationPhrases {
		l.ObligationHits += strings.Count(normalized, phrase)
	}
	for _, phrase := range uncertaintyPhrases {
		l.UncertaintyHits += strings.Count(normalized, phrase)
	}
	return l
}

func tokenize(normalized string) []string {
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'':
			return false
		default:
			return true
		}
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func countSentences(text string) int {
	count := 0
	inRun := false
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if !inRun {
				count++
			}
			inRun = true
		} else {
			inRun = false
		}
	}
	if count == 0 && strings.TrimSpace(text) != "" {
		return 1
	}
	return count
}

// -------------------- sequential --------------------

func extractSequential(entry *types.Entry, prior []*types.Entry) Sequential {
	var s Sequential
	var prev *types.Entry
	for _, p := range prior {
		if !p.EffectiveAt.Before(entry.EffectiveAt) {
			continue
		}
		if prev == nil || p.EffectiveAt.After(prev.EffectiveAt) {
			prev = p
		}
	}
	if prev != nil {
		s.HasPrev = true
		s.DaysSincePrev = entry.EffectiveAt.Sub(prev.EffectiveAt).Hours() / 24
		if entry.HasMood() && prev.HasMood() {
			s.HasMoodDelta = true
			s.MoodDelta = entry.MoodValue() - prev.MoodValue()
		}
	}

	var rollingSum float64
	rollingN := 0
	weekCount := 0
	threeDaysAgo := entry.EffectiveAt.Add(-3 * 24 * time.Hour)
	sevenDaysAgo := entry.EffectiveAt.Add(-7 * 24 * time.Hour)
	for _, p := range prior {
		if p.EffectiveAt.After(entry.EffectiveAt) {
			continue
		}
		if p.EffectiveAt.After(sevenDaysAgo) {
			weekCount++
		}
		if p.EffectiveAt.After(threeDaysAgo) && p.HasMood() {
			rollingSum += p.MoodValue()
			rollingN++
		}
	}
	if entry.HasMood() {
		rollingSum += entry.MoodValue()
		rollingN++
	}
	if rollingN > 0 {
		s.HasRollingMood = true
		s.RollingMood3d = rollingSum / float64(rollingN)
	}
	s.EntriesLast7d = weekCount + 1
	return s
}
