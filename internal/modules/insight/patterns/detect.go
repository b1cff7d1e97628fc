package patterns

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

// Occurrence is one pattern firing on one entry.
type Occurrence struct {
	PatternID  string    `json:"pattern_id"`
	Category   string    `json:"category"`
	Kind       string    `json:"kind"`
	Confidence float64   `json:"confidence"`
	Matched    []string  `json:"matched,omitempty"`
	EntryID    uuid.UUID `json:"entry_id"`
	At         time.Time `json:"at"`
	Mood       float64   `json:"mood"`
	HasMood    bool      `json:"has_mood"`
}

// PeriodStats aggregates one pattern's occurrences across a window.
type PeriodStats struct {
	PatternID      string             `json:"pattern_id"`
	Category       string             `json:"category"`
	Kind           string             `json:"kind"`
	Count          int                `json:"count"`
	Days           []string           `json:"days"`
	MeanConfidence float64            `json:"mean_confidence"`
	MoodMean       float64            `json:"mood_mean"`
	MoodMin        float64            `json:"mood_min"`
	MoodMax        float64            `json:"mood_max"`
	MoodSamples    int                `json:"mood_samples"`
	BiometricDelta map[string]float64 `json:"biometric_delta,omitempty"`
	EntryIDs       []uuid.UUID        `json:"entry_ids,omitempty"`
}

const maxEvidenceEntries = 8

// Detector scores catalog patterns against entries. It holds no per-user
// state and is safe for concurrent use.
type Detector struct {
	catalog *Catalog
	log     *logger.Logger
}

func NewDetector(log *logger.Logger) (*Detector, error) {
	cat, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	return &Detector{catalog: cat, log: log.With("component", "pattern_detector")}, nil
}

// DetectInEntry runs every catalog pattern against a single entry. Patterns
// whose predicate cannot be evaluated on this entry (missing biometrics,
// missing weather tag) are skipped, never failed.
func (d *Detector) DetectInEntry(entry *types.Entry, bio *types.BiometricDay) []Occurrence {
	if entry == nil {
		return nil
	}
	text := strings.ToLower(entry.Text)
	weather, hasWeather := entry.FirstTag("weather")

	var out []Occurrence
	for _, p := range d.catalog.Patterns {
		occ, ok := scorePattern(p, text, weather, hasWeather, bio)
		if !ok {
			continue
		}
		occ.EntryID = entry.ID
		occ.At = entry.EffectiveAt
		occ.Mood = entry.MoodValue()
		occ.HasMood = entry.HasMood()
		out = append(out, occ)
	}
	return out
}

func scorePattern(p Pattern, text, weather string, hasWeather bool, bio *types.BiometricDay) (Occurrence, bool) {
	occ := Occurrence{PatternID: p.ID, Category: p.Category, Kind: p.Kind}
	switch p.Kind {
	case KindNarrative:
		var hits []string
		for _, trigger := range p.Triggers {
			if strings.Contains(text, trigger) {
				hits = append(hits, trigger)
			}
		}
		if len(hits) == 0 {
			return occ, false
		}
		occ.Matched = hits
		occ.Confidence = math.Min(narrativeBase+narrativePerHit*float64(len(hits)), narrativeCeiling)
		return occ, true

	case KindHealth:
		matched, ok := evalCond(p.Health, bio)
		if !ok || !matched {
			return occ, false
		}
		occ.Confidence = healthConfidence
		return occ, true

	case KindEnvironment:
		if !hasWeather || weather != p.Weather {
			return occ, false
		}
		occ.Confidence = environmentConfidence
		return occ, true

	case KindCombined:
		matched, ok := evalCond(p.Health, bio)
		if !ok || !matched || !hasWeather || weather != p.Weather {
			return occ, false
		}
		occ.Confidence = combinedConfidence
		return occ, true
	}
	return occ, false
}

// evalCond returns (matched, evaluable). A missing metric makes the
// condition unevaluable rather than false.
func evalCond(c *ThresholdCond, bio *types.BiometricDay) (bool, bool) {
	if c == nil {
		return false, false
	}
	v := bio.Metric(c.Metric)
	if v == nil {
		return false, false
	}
	switch c.Op {
	case "lt":
		return *v < c.Threshold, true
	case "lte":
		return *v <= c.Threshold, true
	case "gt":
		return *v > c.Threshold, true
	case "gte":
		return *v >= c.Threshold, true
	}
	return false, false
}

// DetectInPeriod runs detection over a window of entries and aggregates the
// occurrences per pattern: how often it fired, the mood on those entries,
// and how the biometric means on pattern days differ from the whole window.
func (d *Detector) DetectInPeriod(entries []*types.Entry, bioByDay map[string]*types.BiometricDay) map[string]*PeriodStats {
	stats := map[string]*PeriodStats{}
	patternDays := map[string]map[string]bool{}

	for _, entry := range entries {
		if entry == nil {
			continue
		}
		day := types.DayKey(entry.EffectiveAt)
		occs := d.DetectInEntry(entry, bioByDay[day])
		for _, occ := range occs {
			st := stats[occ.PatternID]
			if st == nil {
				st = &PeriodStats{
					PatternID: occ.PatternID,
					Category:  occ.Category,
					Kind:      occ.Kind,
					MoodMin:   math.Inf(1),
					MoodMax:   math.Inf(-1),
				}
				stats[occ.PatternID] = st
				patternDays[occ.PatternID] = map[string]bool{}
			}
			st.Count++
			st.MeanConfidence += occ.Confidence
			if occ.HasMood {
				st.MoodSamples++
				st.MoodMean += occ.Mood
				st.MoodMin = math.Min(st.MoodMin, occ.Mood)
				st.MoodMax = math.Max(st.MoodMax, occ.Mood)
			}
			if len(st.EntryIDs) < maxEvidenceEntries {
				st.EntryIDs = append(st.EntryIDs, occ.EntryID)
			}
			patternDays[occ.PatternID][day] = true
		}
	}

	windowMeans := metricMeans(bioByDay, nil)
	for id, st := range stats {
		if st.Count > 0 {
			st.MeanConfidence /= float64(st.Count)
		}
		if st.MoodSamples > 0 {
			st.MoodMean /= float64(st.MoodSamples)
		} else {
			st.MoodMin, st.MoodMax = 0, 0
		}
		for day := range patternDays[id] {
			st.Days = append(st.Days, day)
		}
		sort.Strings(st.Days)
		st.BiometricDelta = biometricDeltas(bioByDay, patternDays[id], windowMeans)
	}
	return stats
}

// metricMeans averages each metric over the given days. A nil filter means
// every day in the map.
func metricMeans(bioByDay map[string]*types.BiometricDay, days map[string]bool) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for day, bio := range bioByDay {
		if bio == nil {
			continue
		}
		if days != nil && !days[day] {
			continue
		}
		for _, metric := range types.BiometricMetrics {
			if v := bio.Metric(metric); v != nil {
				sums[metric] += *v
				counts[metric]++
			}
		}
	}
	means := map[string]float64{}
	for metric, sum := range sums {
		means[metric] = sum / float64(counts[metric])
	}
	return means
}

// biometricDeltas reports, per metric, how pattern days differ from the
// window mean. Metrics absent on either side are left out.
func biometricDeltas(bioByDay map[string]*types.BiometricDay, days map[string]bool, windowMeans map[string]float64) map[string]float64 {
	if len(days) == 0 || len(windowMeans) == 0 {
		return nil
	}
	patternMeans := metricMeans(bioByDay, days)
	if len(patternMeans) == 0 {
		return nil
	}
	deltas := map[string]float64{}
	for metric, pm := range patternMeans {
		if wm, ok := windowMeans[metric]; ok {
			deltas[metric] = pm - wm
		}
	}
	if len(deltas) == 0 {
		return nil
	}
	return deltas
}

// Pearson computes the correlation between two equal-length series. It
// returns nil when there are fewer than five pairs or either side has no
// variance, so callers never read a coefficient from noise.
func Pearson(xs, ys []float64) *float64 {
	n := len(xs)
	if n != len(ys) || n < 5 {
		return nil
	}
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return nil
	}
	r := cov / math.Sqrt(varX*varY)
	return &r
}
