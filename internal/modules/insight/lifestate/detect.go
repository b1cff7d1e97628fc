package lifestate

import (
	"math"
	"sort"
	"strings"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

// Trigger weights by type. Keyword evidence accrues per distinct hit up to
// its cap; the rest are all-or-nothing.
const (
	weightThreadCategory = 30.0
	weightKeywordCap     = 40.0
	weightKeywordPerHit  = 20.0
	weightSentiment      = 20.0
	weightRecovery       = 20.0
	weightMood           = 15.0

	minConfidence = 0.4
	maxSecondary  = 2
)

// DefaultStateID is the fallback when no cataloged state clears the
// confidence floor.
const DefaultStateID = "stable"

const defaultConfidence = 0.5

// Signals is the recent evidence window a detection runs over.
type Signals struct {
	Entries []*types.Entry
	Threads []*types.Thread
	BioDays []*types.BiometricDay
}

// Detection is the scored outcome: one primary, up to two secondaries, and
// every candidate that cleared the floor (for narration).
type Detection struct {
	Primary    types.StateScore
	Secondary  []types.StateScore
	Candidates []types.StateScore
}

type Detector struct {
	catalog *Catalog
	log     *logger.Logger
}

func NewDetector(baseLog *logger.Logger) (*Detector, error) {
	cat, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	return &Detector{catalog: cat, log: baseLog.With("component", "state_detector")}, nil
}

// Detect scores the full catalog against the signal window. Triggers whose
// underlying signal is absent (no biometrics, no scored moods, no active
// threads) count as not applicable instead of failed, so sparse data
// narrows the evidence base rather than dragging every score down.
func (d *Detector) Detect(sig Signals) Detection {
	env := buildEnv(sig)
	if env.empty() {
		return defaultDetection()
	}

	var candidates []types.StateScore
	for _, st := range d.catalog.States {
		score, ok := scoreState(st, env)
		if !ok || score.Confidence < minConfidence {
			continue
		}
		candidates = append(candidates, score)
	}
	if len(candidates) == 0 {
		return defaultDetection()
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].StateID < candidates[j].StateID
	})

	det := Detection{Primary: candidates[0], Candidates: candidates}
	for _, c := range candidates[1:] {
		if len(det.Secondary) == maxSecondary {
			break
		}
		det.Secondary = append(det.Secondary, c)
	}
	return det
}

func defaultDetection() Detection {
	return Detection{Primary: types.StateScore{
		StateID:    DefaultStateID,
		Label:      "Stable",
		Confidence: defaultConfidence,
	}}
}

type signalEnv struct {
	text             string
	activeCategories map[string]bool
	threadSentiment  *float64
	recoveryMean     *float64
	moodMean         *float64
}

func (e signalEnv) empty() bool {
	return e.text == "" && len(e.activeCategories) == 0 &&
		e.threadSentiment == nil && e.recoveryMean == nil && e.moodMean == nil
}

func buildEnv(sig Signals) signalEnv {
	env := signalEnv{activeCategories: map[string]bool{}}

	var textParts []string
	var moodSum float64
	var moodN int
	for _, entry := range sig.Entries {
		if entry == nil {
			continue
		}
		textParts = append(textParts, strings.ToLower(entry.Text))
		if entry.HasMood() {
			moodSum += entry.MoodValue()
			moodN++
		}
	}
	env.text = strings.Join(textParts, " ")
	if moodN > 0 {
		m := moodSum / float64(moodN)
		env.moodMean = &m
	}

	var sentSum float64
	var sentN int
	for _, th := range sig.Threads {
		if th == nil || th.Status != types.ThreadStatusActive {
			continue
		}
		env.activeCategories[strings.ToLower(th.Category)] = true
		if len(th.SentimentHistory) > 0 {
			sentSum += th.SentimentBaseline
			sentN++
		}
	}
	if sentN > 0 {
		s := sentSum / float64(sentN)
		env.threadSentiment = &s
	}

	var recSum float64
	var recN int
	for _, b := range sig.BioDays {
		if b != nil && b.RecoveryScore != nil {
			recSum += *b.RecoveryScore
			recN++
		}
	}
	if recN > 0 {
		r := recSum / float64(recN)
		env.recoveryMean = &r
	}
	return env
}

func scoreState(st State, env signalEnv) (types.StateScore, bool) {
	var achieved, applicable float64

	if len(st.ThreadCategories) > 0 {
		applicable += weightThreadCategory
		for _, c := range st.ThreadCategories {
			if env.activeCategories[c] {
				achieved += weightThreadCategory
				break
			}
		}
	}
	if len(st.Keywords) > 0 {
		applicable += weightKeywordCap
		hits := 0
		for _, kw := range st.Keywords {
			if strings.Contains(env.text, kw) {
				hits++
			}
		}
		achieved += math.Min(float64(hits)*weightKeywordPerHit, weightKeywordCap)
	}
	if st.Sentiment != nil && env.threadSentiment != nil {
		applicable += weightSentiment
		if st.Sentiment.contains(*env.threadSentiment) {
			achieved += weightSentiment
		}
	}
	if st.Recovery != nil && env.recoveryMean != nil {
		applicable += weightRecovery
		if st.Recovery.contains(*env.recoveryMean) {
			achieved += weightRecovery
		}
	}
	if st.Mood != nil && env.moodMean != nil {
		applicable += weightMood
		if st.Mood.contains(*env.moodMean) {
			achieved += weightMood
		}
	}

	if applicable == 0 {
		return types.StateScore{}, false
	}
	conf := achieved / applicable
	if conf > 1 {
		conf = 1
	}
	return types.StateScore{StateID: st.ID, Label: st.Label, Confidence: conf}, true
}
