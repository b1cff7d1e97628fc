package patterns

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	d, err := NewDetector(log)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	return d
}

func testEntry(text string, mood *float64, at time.Time, tags ...string) *types.Entry {
	return &types.Entry{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Text:        text,
		Mood:        mood,
		Tags:        datatypes.JSONSlice[string](tags),
		EffectiveAt: at,
	}
}

func fptr(v float64) *float64 { return &v }

func findOccurrence(occs []Occurrence, id string) *Occurrence {
	for i := range occs {
		if occs[i].PatternID == id {
			return &occs[i]
		}
	}
	return nil
}

func TestLoadCatalogCoversAllKinds(t *testing.T) {
	cat, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	kinds := map[string]int{}
	for _, p := range cat.Patterns {
		kinds[p.Kind]++
	}
	for _, kind := range []string{KindNarrative, KindHealth, KindEnvironment, KindCombined} {
		if kinds[kind] == 0 {
			t.Fatalf("catalog has no %s patterns", kind)
		}
	}
}

func TestNarrativeConfidenceGrowsWithTriggerHits(t *testing.T) {
	d := newTestDetector(t)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		text string
		want float64
	}{
		{"so grateful today", 0.65},
		{"grateful and thankful for all of it", 0.80},
		{"grateful, thankful, what a blessing", 0.95},
		{"grateful thankful blessing, i appreciate everything i have", 0.95},
	}
	for _, tc := range cases {
		occs := d.DetectInEntry(testEntry(tc.text, fptr(0.8), at), nil)
		occ := findOccurrence(occs, "gratitude_practice")
		if occ == nil {
			t.Fatalf("text %q: gratitude_practice did not fire", tc.text)
		}
		if math.Abs(occ.Confidence-tc.want) > 1e-9 {
			t.Fatalf("text %q: confidence = %v, want %v", tc.text, occ.Confidence, tc.want)
		}
		if len(occ.Matched) == 0 {
			t.Fatalf("text %q: no matched triggers recorded", tc.text)
		}
	}
}

func TestHealthPatternSkipsWhenMetricMissing(t *testing.T) {
	d := newTestDetector(t)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	entry := testEntry("plain day", fptr(0.5), at)

	// No biometrics at all: the predicate cannot evaluate, so it is
	// skipped rather than treated as false-and-fired.
	if occ := findOccurrence(d.DetectInEntry(entry, nil), "low_recovery"); occ != nil {
		t.Fatalf("low_recovery fired with no biometrics")
	}

	bio := &types.BiometricDay{Day: at}
	if occ := findOccurrence(d.DetectInEntry(entry, bio), "low_recovery"); occ != nil {
		t.Fatalf("low_recovery fired with recovery_score missing")
	}

	bio.RecoveryScore = fptr(25)
	occ := findOccurrence(d.DetectInEntry(entry, bio), "low_recovery")
	if occ == nil {
		t.Fatalf("low_recovery did not fire at recovery 25")
	}
	if occ.Confidence != 0.9 {
		t.Fatalf("health confidence = %v, want 0.9", occ.Confidence)
	}

	bio.RecoveryScore = fptr(60)
	if occ := findOccurrence(d.DetectInEntry(entry, bio), "low_recovery"); occ != nil {
		t.Fatalf("low_recovery fired at recovery 60")
	}
}

func TestCombinedPatternNeedsBothSignals(t *testing.T) {
	d := newTestDetector(t)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	bio := &types.BiometricDay{Day: at, SleepHours: fptr(4.5)}

	// Underslept but no weather tag: combined predicate is unevaluable.
	entry := testEntry("tired", fptr(0.4), at)
	if occ := findOccurrence(d.DetectInEntry(entry, bio), "underslept_rainy"); occ != nil {
		t.Fatalf("underslept_rainy fired without a weather tag")
	}

	entry = testEntry("tired", fptr(0.4), at, "weather:sunny")
	if occ := findOccurrence(d.DetectInEntry(entry, bio), "underslept_rainy"); occ != nil {
		t.Fatalf("underslept_rainy fired on sunny weather")
	}

	entry = testEntry("tired", fptr(0.4), at, "weather:rainy")
	occ := findOccurrence(d.DetectInEntry(entry, bio), "underslept_rainy")
	if occ == nil {
		t.Fatalf("underslept_rainy did not fire on rainy + 4.5h sleep")
	}
	if occ.Confidence != 0.95 {
		t.Fatalf("combined confidence = %v, want 0.95", occ.Confidence)
	}

	// The environment half should also fire on its own.
	env := findOccurrence(d.DetectInEntry(entry, bio), "rainy_day")
	if env == nil || env.Confidence != 0.9 {
		t.Fatalf("rainy_day = %+v, want confidence 0.9", env)
	}
}

func TestDetectInPeriodAggregates(t *testing.T) {
	d := newTestDetector(t)
	day1 := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)

	entries := []*types.Entry{
		testEntry("nothing notable", fptr(0.5), day1),
		testEntry("grateful for the morning", fptr(0.9), day2),
		testEntry("thankful tonight", fptr(0.7), day3),
	}
	bioByDay := map[string]*types.BiometricDay{
		types.DayKey(day1): {Day: day1, RecoveryScore: fptr(80)},
		types.DayKey(day2): {Day: day2, RecoveryScore: fptr(50)},
		types.DayKey(day3): {Day: day3, RecoveryScore: fptr(50)},
	}

	stats := d.DetectInPeriod(entries, bioByDay)
	st := stats["gratitude_practice"]
	if st == nil {
		t.Fatalf("no period stats for gratitude_practice")
	}
	if st.Count != 2 {
		t.Fatalf("count = %d, want 2", st.Count)
	}
	if st.MoodSamples != 2 {
		t.Fatalf("mood samples = %d, want 2", st.MoodSamples)
	}
	if math.Abs(st.MoodMean-0.8) > 1e-9 {
		t.Fatalf("mood mean = %v, want 0.8", st.MoodMean)
	}
	if st.MoodMin != 0.7 || st.MoodMax != 0.9 {
		t.Fatalf("mood min/max = %v/%v, want 0.7/0.9", st.MoodMin, st.MoodMax)
	}
	if len(st.Days) != 2 {
		t.Fatalf("days = %v, want 2 distinct days", st.Days)
	}

	// Pattern days average recovery 50 against a window mean of 60.
	delta, ok := st.BiometricDelta[types.MetricRecoveryScore]
	if !ok {
		t.Fatalf("no recovery_score delta: %+v", st.BiometricDelta)
	}
	if math.Abs(delta-(-10)) > 1e-9 {
		t.Fatalf("recovery delta = %v, want -10", delta)
	}
}

func TestPearsonGuards(t *testing.T) {
	if r := Pearson([]float64{1, 2, 3, 4}, []float64{1, 2, 3, 4}); r != nil {
		t.Fatalf("Pearson accepted fewer than five pairs: %v", *r)
	}
	if r := Pearson([]float64{1, 1, 1, 1, 1}, []float64{1, 2, 3, 4, 5}); r != nil {
		t.Fatalf("Pearson returned a value for zero variance: %v", *r)
	}

	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2, 4, 6, 8, 10}
	r := Pearson(xs, ys)
	if r == nil {
		t.Fatalf("Pearson returned nil for a perfect linear pair")
	}
	if math.Abs(*r-1) > 1e-9 {
		t.Fatalf("Pearson = %v, want 1", *r)
	}

	inv := Pearson(xs, []float64{10, 8, 6, 4, 2})
	if inv == nil || math.Abs(*inv+1) > 1e-9 {
		t.Fatalf("Pearson = %v, want -1", inv)
	}
}
