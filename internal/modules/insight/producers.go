package insight

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fathom-backend/internal/modules/insight/baseline"
	"github.com/yungbote/fathom-backend/internal/modules/insight/features"
	"github.com/yungbote/fathom-backend/internal/modules/insight/lifestate"
	"github.com/yungbote/fathom-backend/internal/modules/insight/patterns"
	"github.com/yungbote/fathom-backend/internal/modules/insight/rules"
	"github.com/yungbote/fathom-backend/internal/modules/insight/sequences"
	"github.com/yungbote/fathom-backend/internal/modules/insight/synthesis"
	"github.com/yungbote/fathom-backend/internal/types"
)

const (
	maxRuleInsights   = 5
	maxHelperInsights = 3
)

// producerInput bundles everything the stage pipeline computed for one
// generation. Producers are pure over it except for synthesis, which goes
// through the engine's port.
type producerInput struct {
	now      time.Time
	entries  []*types.Entry // chronological
	bioByDay map[string]*types.BiometricDay
	features []features.FeatureSet

	stats         map[string]*patterns.PeriodStats
	baselineDoc   *types.BaselineDoc
	baselineReady bool

	detection    lifestate.Detection
	stateDoc     *types.LifeStateDoc
	stateChanged bool

	threads       []*types.Thread
	rules         []rules.Rule
	declines      []sequences.DeclineCluster
	recovery      *sequences.RecoveryProfile
	interventions []*types.Intervention
	settings      *types.UserSettings
}

func (e *Engine) produce(ctx context.Context, in producerInput) map[string][]types.Insight {
	out := map[string][]types.Insight{}
	add := func(cat string, list []types.Insight) {
		if len(list) > 0 {
			out[cat] = append(out[cat], list...)
		}
	}

	add(types.CategoryCalibration, calibrationInsights(in))
	add(types.CategoryReflections, e.reflectionInsights(ctx, in))
	add(types.CategoryCorrelations, patternInsights(in))
	add(types.CategoryCorrelations, deviationInsights(in))
	add(types.CategoryCorrelations, ruleInsights(in))
	add(types.CategoryCorrelations, declineInsights(in))
	add(types.CategoryRecovery, recoveryInsights(in))

	// Enrichments are optional: each runs behind its own panic boundary
	// and a failure drops that enrichment alone.
	add(types.CategoryCorrelations, e.enrich("meta_patterns", func() []types.Insight { return metaPatternInsights(in) }))
	add(types.CategoryReflections, e.enrich("dissonance", func() []types.Insight { return dissonanceInsights(in) }))
	add(types.CategoryCorrelations, e.enrich("counterfactual", func() []types.Insight { return counterfactualInsights(in) }))

	return out
}

func (e *Engine) enrich(name string, fn func() []types.Insight) (out []types.Insight) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("insight enrichment panicked", "enrichment", name, "panic", fmt.Sprint(r))
			out = nil
		}
	}()
	return fn()
}

// -------------------- calibration --------------------

func calibrationInsights(in producerInput) []types.Insight {
	var out []types.Insight
	stamp := func(i types.Insight) types.Insight {
		i.Category = types.CategoryCalibration
		i.Kind = "calibration"
		i.Priority = types.PriorityCalibration
		i.FirstSeen = in.now
		i.LastSeen = in.now
		return i
	}

	total := len(in.entries)
	if total < baseline.MinEntries {
		out = append(out, stamp(types.Insight{
			ID:         StableID("calibration", "onboarding"),
			Title:      "Keep writing to unlock personal baselines",
			Summary:    fmt.Sprintf("You have %d entries so far. Baselines and correlations open up at %d.", total, baseline.MinEntries),
			Confidence: 1,
		}))
	}

	scored := 0
	for _, en := range in.entries {
		if en.HasMood() {
			scored++
		}
	}
	if total >= 5 && float64(scored) < float64(total)*0.5 {
		out = append(out, stamp(types.Insight{
			ID:         StableID("calibration", "mood_coverage"),
			Title:      "Score more entries for sharper correlations",
			Summary:    fmt.Sprintf("Only %d of %d recent entries carry a mood score, so mood-linked findings run on thin evidence.", scored, total),
			Confidence: 1,
		}))
	}

	if total >= baseline.MinEntries && len(in.bioByDay) == 0 {
		out = append(out, stamp(types.Insight{
			ID:         StableID("calibration", "no_biometrics"),
			Title:      "No biometric data connected",
			Summary:    "Sleep and recovery comparisons stay offline until daily biometrics come in.",
			Confidence: 1,
		}))
	}

	for _, iv := range in.interventions {
		if iv == nil || iv.Status != types.InterventionActive {
			continue
		}
		summary := fmt.Sprintf("Started %s.", iv.StartedAt.Format("Jan 2"))
		if iv.TargetMetric != "" {
			summary = fmt.Sprintf("Started %s, watching %s.", iv.StartedAt.Format("Jan 2"), baseline.MetricLabel(iv.TargetMetric))
		}
		out = append(out, stamp(types.Insight{
			ID:         StableID("calibration", "intervention", iv.ID.String()),
			Title:      "Experiment in progress: " + iv.Name,
			Summary:    summary,
			SourceKey:  iv.ID.String(),
			Confidence: 1,
		}))
	}

	return out
}

// -------------------- reflections --------------------

func (e *Engine) reflectionInsights(ctx context.Context, in producerInput) []types.Insight {
	var out []types.Insight

	primary := in.detection.Primary
	if primary.StateID != "" {
		days := lifestate.CurrentDurationDays(in.stateDoc, in.now)
		summary := fmt.Sprintf("Signals point to %s, %s in.", strings.ToLower(primary.Label), humanDays(days))
		if past := lifestate.SimilarPastStates(in.stateDoc, primary.StateID); len(past) > 0 {
			avg := 0.0
			for _, tr := range past {
				avg += tr.DurationDays
			}
			avg /= float64(len(past))
			summary += fmt.Sprintf(" Past %s periods ran about %s.", strings.ToLower(primary.Label), humanDays(avg))
		}
		priority := types.PriorityModerate
		if in.stateChanged {
			priority = types.PriorityHigh
		}
		out = append(out, types.Insight{
			ID:         StableID("state_change", primary.StateID),
			Category:   types.CategoryReflections,
			Kind:       "state_change",
			Title:      "Current chapter: " + primary.Label,
			Summary:    summary,
			Priority:   priority,
			Confidence: primary.Confidence,
			SourceKey:  primary.StateID,
			FirstSeen:  in.now,
			LastSeen:   in.now,
		})
	}

	for _, th := range in.threads {
		if th == nil || len(th.SentimentHistory) < 3 {
			continue
		}
		var title, verb string
		priority := types.PriorityModerate
		switch th.Trajectory {
		case types.TrajectoryDeclining:
			title = fmt.Sprintf("The %q storyline is losing ground", th.DisplayName)
			verb = "slipped"
			priority = types.PriorityHigh
		case types.TrajectoryImproving:
			title = fmt.Sprintf("The %q storyline is gaining ground", th.DisplayName)
			verb = "climbed"
		default:
			continue
		}
		recent := th.SentimentHistory[len(th.SentimentHistory)-1]
		out = append(out, types.Insight{
			ID:       StableID("thread", th.ID.String(), th.Trajectory),
			Category: types.CategoryReflections,
			Kind:     "thread_trajectory",
			Title:    title,
			Summary: fmt.Sprintf("Across %d mentions the tone has %s; the latest reads %.2f against a %.2f norm.",
				len(th.SentimentHistory), verb, recent, th.SentimentBaseline),
			Priority:   priority,
			Confidence: 0.7,
			SourceKey:  th.ID.String(),
			Evidence:   entryEvidence(th.EntryIDs, 5),
			FirstSeen:  in.now,
			LastSeen:   in.now,
		})
	}

	if d := e.synthesize(ctx, in); d != nil {
		out = append(out, *d)
	}

	return out
}

// synthesize narrates the week through the synthesis port. Nil when the
// user turned it off, the port is absent, or there is nothing to say.
func (e *Engine) synthesize(ctx context.Context, in producerInput) *types.Insight {
	if e.synth == nil || (in.settings != nil && !in.settings.SynthesisEnabled) {
		return nil
	}
	obs := observationLines(in)
	if len(obs) == 0 {
		return nil
	}

	sin := synthesis.Input{
		Kind:         synthesis.KindReflection,
		StateID:      in.detection.Primary.StateID,
		StateDays:    lifestate.CurrentDurationDays(in.stateDoc, in.now),
		Observations: obs,
		Recovery:     recoveryLines(in.recovery),
	}
	draft, err := e.synth.Synthesize(ctx, sin)
	if err != nil || draft == nil {
		e.log.Warn("synthesis unavailable for this generation", "error", err)
		return nil
	}

	year, week := in.now.ISOWeek()
	body := draft.Body
	if draft.Recommendation != "" {
		body = strings.TrimSpace(body + "\n\n" + draft.Recommendation)
	}
	return &types.Insight{
		ID:         StableID("reflection", in.detection.Primary.StateID, fmt.Sprintf("%04d-w%02d", year, week)),
		Category:   types.CategoryReflections,
		Kind:       "reflection",
		Title:      draft.Title,
		Summary:    draft.Summary,
		Body:       body,
		Priority:   types.PriorityModerate,
		Confidence: 0.6,
		Evidence:   draft.Evidence,
		FirstSeen:  in.now,
		LastSeen:   in.now,
	}
}

func observationLines(in producerInput) []string {
	var obs []string
	if p := in.detection.Primary; p.StateID != "" && p.StateID != lifestate.DefaultStateID {
		obs = append(obs, fmt.Sprintf("current period reads as %s (confidence %.0f%%)", strings.ToLower(p.Label), p.Confidence*100))
	}
	type ranked struct {
		line  string
		count int
	}
	var rows []ranked
	for _, st := range in.stats {
		if st == nil || st.Count < 3 || st.MoodSamples < 3 {
			continue
		}
		rows = append(rows, ranked{
			line:  fmt.Sprintf("%s appeared on %d entries with mean mood %.2f", humanizePattern(st.PatternID), st.Count, st.MoodMean),
			count: st.Count,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].count > rows[j].count })
	for i := 0; i < len(rows) && i < 3; i++ {
		obs = append(obs, rows[i].line)
	}
	for i, r := range in.rules {
		if i >= 2 || r.Validation == types.ValidationHidden {
			break
		}
		obs = append(obs, fmt.Sprintf("%s shifts mood by %+.2f over %d entries", itemsLabel(r.Antecedent), r.MoodDelta, r.SampleCount))
	}
	return obs
}

func recoveryLines(p *sequences.RecoveryProfile) []string {
	if p == nil || p.Recoveries == 0 {
		return nil
	}
	lines := []string{fmt.Sprintf("typical recovery takes %s", humanDays(p.AvgDaysToRecover))}
	for i, h := range p.Helpers {
		if i >= 3 {
			break
		}
		lines = append(lines, fmt.Sprintf("%s showed up in %d recoveries", helperLabel(h), h.Count))
	}
	return lines
}

// -------------------- correlations --------------------

func patternInsights(in producerInput) []types.Insight {
	if !in.baselineReady {
		return nil
	}
	moodStats := baseline.GlobalStats(in.baselineDoc, types.MetricMood)

	var out []types.Insight
	ids := make([]string, 0, len(in.stats))
	for id := range in.stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		st := in.stats[id]
		if st == nil || st.Count < 3 || st.MoodSamples < 3 {
			continue
		}
		cmp := baseline.CompareToBaseline(st.MoodMean, moodStats, types.MetricMood)
		if cmp == nil || cmp.Status == baseline.StatusNormal {
			continue
		}
		priority := types.PriorityModerate
		if cmp.Status == baseline.StatusSignificantlyElevated || cmp.Status == baseline.StatusSignificantlyDepressed {
			priority = types.PriorityHigh
		}
		body := ""
		if delta, ok := st.BiometricDelta[types.MetricSleepHours]; ok && math.Abs(delta) >= 0.5 {
			body = fmt.Sprintf("Those days also run %+.1fh of sleep against your window average.", delta)
		}
		out = append(out, types.Insight{
			ID:       StableID("pattern", st.PatternID),
			Category: types.CategoryCorrelations,
			Kind:     "pattern",
			Title:    fmt.Sprintf("Mood runs %s around %s", statusWord(cmp.Status), humanizePattern(st.PatternID)),
			Summary: fmt.Sprintf("%d entries matched %s with mean mood %.2f against your %.2f baseline.",
				st.Count, humanizePattern(st.PatternID), st.MoodMean, cmp.Mean),
			Body:       body,
			Priority:   priority,
			Confidence: st.MeanConfidence,
			SourceKey:  st.PatternID,
			Evidence:   entryEvidence(st.EntryIDs, 5),
			FirstSeen:  in.now,
			LastSeen:   in.now,
		})
	}
	return out
}

// deviationInsights compares the trailing week against stored baselines
// for mood and the core biometrics.
func deviationInsights(in producerInput) []types.Insight {
	if !in.baselineReady {
		return nil
	}
	weekAgo := in.now.AddDate(0, 0, -7)

	var out []types.Insight
	emit := func(metric string, current float64, samples int) {
		if samples < 3 {
			return
		}
		cmp := baseline.CompareToBaseline(current, baseline.GlobalStats(in.baselineDoc, metric), metric)
		if cmp == nil || cmp.Status == baseline.StatusNormal {
			return
		}
		priority := types.PriorityModerate
		if cmp.Status == baseline.StatusSignificantlyElevated || cmp.Status == baseline.StatusSignificantlyDepressed {
			priority = types.PriorityHigh
		}
		out = append(out, types.Insight{
			ID:         StableID("baseline_deviation", metric),
			Category:   types.CategoryCorrelations,
			Kind:       "baseline_deviation",
			Title:      fmt.Sprintf("This week's %s is %s", baseline.MetricLabel(metric), statusWord(cmp.Status)),
			Summary:    cmp.Interpretation,
			Priority:   priority,
			Confidence: math.Min(math.Abs(cmp.Z)/3, 1),
			SourceKey:  metric,
			FirstSeen:  in.now,
			LastSeen:   in.now,
		})
	}

	sum, n := 0.0, 0
	for _, en := range in.entries {
		if en.HasMood() && en.EffectiveAt.After(weekAgo) {
			sum += *en.Mood
			n++
		}
	}
	if n > 0 {
		emit(types.MetricMood, sum/float64(n), n)
	}

	for _, metric := range []string{types.MetricSleepHours, types.MetricRestingHeartRate, types.MetricHRV} {
		sum, n := 0.0, 0
		for _, day := range in.bioByDay {
			if day == nil || !day.Day.After(weekAgo) {
				continue
			}
			if v := day.Metric(metric); v != nil {
				sum += *v
				n++
			}
		}
		if n > 0 {
			emit(metric, sum/float64(n), n)
		}
	}
	return out
}

func ruleInsights(in producerInput) []types.Insight {
	var out []types.Insight
	for _, r := range in.rules {
		if len(out) >= maxRuleInsights {
			break
		}
		if r.Validation == types.ValidationHidden || r.Validation == types.ValidationDismissed {
			continue
		}
		direction := "lifts"
		if r.Consequent == rules.ConsequentDrop {
			direction = "drags down"
		}
		priority := types.PriorityCorrelational
		if r.Validation == types.ValidationConfirmed {
			priority = types.PriorityHigh
		}
		out = append(out, types.Insight{
			ID:       StableID("association_rule", r.Key),
			Category: types.CategoryCorrelations,
			Kind:     "association_rule",
			Title:    fmt.Sprintf("%s %s your mood", capitalize(itemsLabel(r.Antecedent)), direction),
			Summary: fmt.Sprintf("Entries with %s average a %+.2f mood shift across %d matches.",
				itemsLabel(r.Antecedent), r.MoodDelta, r.SampleCount),
			Priority:   priority,
			Confidence: r.Confidence,
			Validation: r.Validation,
			SourceKey:  r.Key,
			Evidence:   entryEvidence(r.EntryIDs, 5),
			FirstSeen:  in.now,
			LastSeen:   in.now,
		})
	}
	return out
}

func declineInsights(in producerInput) []types.Insight {
	var out []types.Insight
	for _, c := range in.declines {
		topics := c.CommonTopics
		if len(topics) == 0 {
			topics = c.TopicUnion
		}
		if len(topics) == 0 {
			continue
		}
		priority := types.PriorityCorrelational
		if c.Validation == types.ValidationConfirmed {
			priority = types.PriorityHigh
		}
		out = append(out, types.Insight{
			ID:       StableID("decline_sequence", strings.Join(topics, "+")),
			Category: types.CategoryCorrelations,
			Kind:     "decline_sequence",
			Title:    "A repeating slide around " + joinWithAnd(topics),
			Summary: fmt.Sprintf("%d similar declines averaging %.2f mood lost over %s, usually about %s.",
				len(c.Members), c.AvgMoodDrop, humanDays(c.AvgDays), joinWithAnd(topics)),
			Priority:   priority,
			Confidence: c.Confidence,
			Validation: c.Validation,
			SourceKey:  strings.Join(topics, "+"),
			FirstSeen:  in.now,
			LastSeen:   in.now,
		})
	}
	return out
}

// -------------------- recovery --------------------

func recoveryInsights(in producerInput) []types.Insight {
	p := in.recovery
	if p == nil || p.Recoveries < 2 {
		return nil
	}

	var names []string
	for i, h := range p.Helpers {
		if i >= maxHelperInsights {
			break
		}
		names = append(names, helperLabel(h))
	}
	summary := fmt.Sprintf("Across %d recoveries you climb back in about %s.", p.Recoveries, humanDays(p.AvgDaysToRecover))
	if len(names) > 0 {
		summary += " " + capitalize(joinWithAnd(names)) + " kept showing up on the way back."
	}

	out := []types.Insight{{
		ID:         StableID("recovery_path", "profile"),
		Category:   types.CategoryRecovery,
		Kind:       "recovery_path",
		Title:      "What pulls you out of a slump",
		Summary:    summary,
		Priority:   types.PriorityModerate,
		Confidence: math.Min(0.4+0.1*float64(p.Recoveries), 0.9),
		FirstSeen:  in.now,
		LastSeen:   in.now,
	}}

	for i, h := range p.Helpers {
		if i >= maxHelperInsights || h.Count < 2 {
			break
		}
		out = append(out, types.Insight{
			ID:       StableID("recovery_path", "helper", h.Kind, h.Name),
			Category: types.CategoryRecovery,
			Kind:     "recovery_helper",
			Title:    "Reliable helper: " + helperLabel(h),
			Summary: fmt.Sprintf("%s appeared in %d of your %d recoveries.",
				capitalize(helperLabel(h)), h.Count, p.Recoveries),
			Priority:   types.PriorityModerate,
			Confidence: math.Min(float64(h.Count)/float64(p.Recoveries), 1),
			SourceKey:  h.Kind + ":" + h.Name,
			FirstSeen:  in.now,
			LastSeen:   in.now,
		})
	}
	return out
}

// -------------------- enrichments --------------------

// metaPatternInsights correlates each day-level biometric with same-day
// mean mood across the window.
func metaPatternInsights(in producerInput) []types.Insight {
	moodByDay := map[string][]float64{}
	for _, en := range in.entries {
		if en.HasMood() {
			key := types.DayKey(en.EffectiveAt)
			moodByDay[key] = append(moodByDay[key], *en.Mood)
		}
	}

	var out []types.Insight
	for _, metric := range []string{types.MetricSleepHours, types.MetricRestingHeartRate, types.MetricHRV} {
		var xs, ys []float64
		for key, moods := range moodByDay {
			day := in.bioByDay[key]
			if day == nil {
				continue
			}
			v := day.Metric(metric)
			if v == nil {
				continue
			}
			sum := 0.0
			for _, m := range moods {
				sum += m
			}
			xs = append(xs, *v)
			ys = append(ys, sum/float64(len(moods)))
		}
		if len(xs) < 7 {
			continue
		}
		r := patterns.Pearson(xs, ys)
		if r == nil || math.Abs(*r) < 0.5 {
			continue
		}
		direction := "together"
		if *r < 0 {
			direction = "in opposite directions"
		}
		out = append(out, types.Insight{
			ID:       StableID("meta_pattern", metric, types.MetricMood),
			Category: types.CategoryCorrelations,
			Kind:     "meta_pattern",
			Title:    fmt.Sprintf("%s and mood move %s", baseline.MetricLabel(metric), direction),
			Summary: fmt.Sprintf("Across %d paired days, %s and same-day mood correlate at r=%+.2f.",
				len(xs), baseline.MetricLabel(metric), *r),
			Priority:   types.PriorityModerate,
			Confidence: math.Abs(*r),
			SourceKey:  metric + "~" + types.MetricMood,
			FirstSeen:  in.now,
			LastSeen:   in.now,
		})
	}
	return out
}

// dissonanceInsights flags a run of entries whose language and mood score
// point different ways.
func dissonanceInsights(in producerInput) []types.Insight {
	downplayed, overplayed := 0, 0
	for _, fs := range in.features {
		if !fs.HasMood {
			continue
		}
		l := fs.Linguistic
		if fs.Mood >= 0.6 && l.NegativeHits > l.PositiveHits+2 {
			overplayed++
		}
		if fs.Mood <= 0.4 && l.PositiveHits > l.NegativeHits+2 {
			downplayed++
		}
	}

	var out []types.Insight
	if overplayed >= 3 {
		out = append(out, types.Insight{
			ID:         StableID("dissonance", "score_above_words"),
			Category:   types.CategoryReflections,
			Kind:       "dissonance",
			Title:      "High scores over heavy words",
			Summary:    fmt.Sprintf("%d entries carry an upbeat score while the writing leans negative. The words may know something the number does not.", overplayed),
			Priority:   types.PriorityModerate,
			Confidence: 0.5,
			FirstSeen:  in.now,
			LastSeen:   in.now,
		})
	}
	if downplayed >= 3 {
		out = append(out, types.Insight{
			ID:         StableID("dissonance", "words_above_score"),
			Category:   types.CategoryReflections,
			Kind:       "dissonance",
			Title:      "Brighter words than scores",
			Summary:    fmt.Sprintf("%d entries score low while the writing leans positive. Low days may read better in hindsight than they felt.", downplayed),
			Priority:   types.PriorityModerate,
			Confidence: 0.5,
			FirstSeen:  in.now,
			LastSeen:   in.now,
		})
	}
	return out
}

// counterfactualInsights points at the strongest mood lifter missing from
// the recent window.
func counterfactualInsights(in producerInput) []types.Insight {
	weekAgo := in.now.AddDate(0, 0, -7)
	recent := map[string]bool{}
	for _, fs := range in.features {
		if !fs.At.After(weekAgo) {
			continue
		}
		for _, item := range rules.Itemize(fs) {
			recent[item] = true
		}
	}

	for _, r := range in.rules {
		if r.Consequent != rules.ConsequentBoost || r.Validation == types.ValidationHidden || r.Validation == types.ValidationDismissed {
			continue
		}
		present := false
		for _, item := range r.Antecedent {
			if recent[item] {
				present = true
				break
			}
		}
		if present {
			continue
		}
		return []types.Insight{{
			ID:       StableID("counterfactual", r.Key),
			Category: types.CategoryCorrelations,
			Kind:     "counterfactual",
			Title:    fmt.Sprintf("No %s in the last week", itemsLabel(r.Antecedent)),
			Summary: fmt.Sprintf("Entries with %s average %+.2f mood, and none showed up in the last seven days.",
				itemsLabel(r.Antecedent), r.MoodDelta),
			Priority:   types.PriorityModerate,
			Confidence: r.Confidence,
			Validation: r.Validation,
			SourceKey:  r.Key,
			FirstSeen:  in.now,
			LastSeen:   in.now,
		}}
	}
	return nil
}

// -------------------- phrasing helpers --------------------

func humanizePattern(id string) string {
	return strings.ReplaceAll(id, "_", " ")
}

func statusWord(status string) string {
	switch status {
	case baseline.StatusSignificantlyElevated:
		return "well above baseline"
	case baseline.StatusElevated:
		return "above baseline"
	case baseline.StatusDepressed:
		return "below baseline"
	case baseline.StatusSignificantlyDepressed:
		return "well below baseline"
	default:
		return "near baseline"
	}
}

func itemLabel(item string) string {
	kind, value, ok := types.SplitTag(item)
	if !ok {
		return strings.ReplaceAll(item, "_", " ")
	}
	switch kind {
	case "person":
		return "time with " + value
	case "place":
		return "being at " + value
	case "activity":
		return value
	case "topic":
		return "writing about " + value
	case "weather":
		return value + " weather"
	case "day":
		return value + "s"
	case "time":
		return value + " entries"
	case "season":
		return value
	case "type":
		return value + " entries"
	default:
		return value
	}
}

func itemsLabel(items []string) string {
	labels := make([]string, 0, len(items))
	for _, item := range items {
		labels = append(labels, itemLabel(item))
	}
	return joinWithAnd(labels)
}

func joinWithAnd(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

func helperLabel(h sequences.Helper) string {
	switch h.Kind {
	case sequences.HelperPerson:
		return "time with " + h.Name
	default:
		return strings.ReplaceAll(h.Name, "_", " ")
	}
}

func humanDays(days float64) string {
	switch {
	case days < 1:
		return "less than a day"
	case days < 1.5:
		return "about a day"
	default:
		return fmt.Sprintf("about %.0f days", days)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func entryEvidence(ids []uuid.UUID, max int) []string {
	out := make([]string, 0, max)
	for _, id := range ids {
		if len(out) >= max {
			break
		}
		out = append(out, "entry:"+id.String())
	}
	return out
}
