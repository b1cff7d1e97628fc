package insight

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/clients/redis"
	"github.com/yungbote/fathom-backend/internal/modules/insight/baseline"
	"github.com/yungbote/fathom-backend/internal/modules/insight/lifestate"
	"github.com/yungbote/fathom-backend/internal/modules/insight/patterns"
	"github.com/yungbote/fathom-backend/internal/modules/insight/rules"
	"github.com/yungbote/fathom-backend/internal/modules/insight/threads"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

// -------------------- fakes --------------------

type fakeEntryRepo struct {
	rows []*types.Entry // newest first
	fail error
}

func (f *fakeEntryRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.Entry) (*types.Entry, error) {
	return entry, nil
}

func (f *fakeEntryRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, entryID uuid.UUID) (*types.Entry, error) {
	return nil, nil
}

func (f *fakeEntryRepo) ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Entry, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	rows := f.rows
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return append([]*types.Entry(nil), rows...), nil
}

func (f *fakeEntryRepo) ListRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.Entry, error) {
	return append([]*types.Entry(nil), f.rows...), nil
}

func (f *fakeEntryRepo) Update(ctx context.Context, tx *gorm.DB, entry *types.Entry) error {
	return nil
}

func (f *fakeEntryRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	return int64(len(f.rows)), nil
}

type fakeBioRepo struct {
	days []*types.BiometricDay
	fail error
}

func (f *fakeBioRepo) UpsertDays(ctx context.Context, tx *gorm.DB, days []*types.BiometricDay) error {
	return nil
}

func (f *fakeBioRepo) ListRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.BiometricDay, error) {
	return f.days, nil
}

func (f *fakeBioRepo) ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.BiometricDay, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.days, nil
}

type fakeDocRepo struct {
	docs       map[string]*types.InsightDoc
	upserts    int
	failUpsert error
}

func (f *fakeDocRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, category string) (*types.InsightDoc, error) {
	return f.docs[category], nil
}

func (f *fakeDocRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.InsightDoc, error) {
	cats := make([]string, 0, len(f.docs))
	for cat := range f.docs {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	out := make([]*types.InsightDoc, 0, len(cats))
	for _, cat := range cats {
		out = append(out, f.docs[cat])
	}
	return out, nil
}

func (f *fakeDocRepo) Upsert(ctx context.Context, tx *gorm.DB, doc *types.InsightDoc) error {
	if f.failUpsert != nil {
		return f.failUpsert
	}
	if f.docs == nil {
		f.docs = map[string]*types.InsightDoc{}
	}
	f.docs[doc.Category] = doc
	f.upserts++
	return nil
}

func (f *fakeDocRepo) ListExpiredUsers(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	return nil, nil
}

type fakeBaselineDocRepo struct {
	doc     *types.BaselineDoc
	upserts int
}

func (f *fakeBaselineDocRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.BaselineDoc, error) {
	return f.doc, nil
}

func (f *fakeBaselineDocRepo) Upsert(ctx context.Context, tx *gorm.DB, doc *types.BaselineDoc) error {
	f.doc = doc
	f.upserts++
	return nil
}

type fakeStateDocRepo struct {
	doc *types.LifeStateDoc
}

func (f *fakeStateDocRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.LifeStateDoc, error) {
	return f.doc, nil
}

func (f *fakeStateDocRepo) Upsert(ctx context.Context, tx *gorm.DB, doc *types.LifeStateDoc) error {
	f.doc = doc
	return nil
}

type fakeThreadRepo struct {
	rows []*types.Thread
}

func (f *fakeThreadRepo) Create(ctx context.Context, tx *gorm.DB, thread *types.Thread) (*types.Thread, error) {
	f.rows = append(f.rows, thread)
	return thread, nil
}

func (f *fakeThreadRepo) Update(ctx context.Context, tx *gorm.DB, thread *types.Thread) error {
	return nil
}

func (f *fakeThreadRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, threadID uuid.UUID) (*types.Thread, error) {
	for _, th := range f.rows {
		if th.ID == threadID {
			return th, nil
		}
	}
	return nil, nil
}

func (f *fakeThreadRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Thread, error) {
	return f.rows, nil
}

func (f *fakeThreadRepo) ListByStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) ([]*types.Thread, error) {
	var out []*types.Thread
	for _, th := range f.rows {
		if th.Status == status {
			out = append(out, th)
		}
	}
	return out, nil
}

type fakeFeedbackRepo struct{}

func (f *fakeFeedbackRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.RuleFeedback, error) {
	return nil, nil
}

func (f *fakeFeedbackRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ruleKey string) (*types.RuleFeedback, error) {
	return nil, nil
}

func (f *fakeFeedbackRepo) Upsert(ctx context.Context, tx *gorm.DB, fb *types.RuleFeedback) error {
	return nil
}

type fakeInterventionRepo struct {
	rows []*types.Intervention
}

func (f *fakeInterventionRepo) Create(ctx context.Context, tx *gorm.DB, iv *types.Intervention) (*types.Intervention, error) {
	return iv, nil
}

func (f *fakeInterventionRepo) ListActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, at time.Time) ([]*types.Intervention, error) {
	return f.rows, nil
}

func (f *fakeInterventionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Intervention, error) {
	return f.rows, nil
}

func (f *fakeInterventionRepo) SetStatus(ctx context.Context, tx *gorm.DB, userID, interventionID uuid.UUID, status string) error {
	return nil
}

type fakeSettingsRepo struct {
	row *types.UserSettings
}

func (f *fakeSettingsRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserSettings, error) {
	return f.row, nil
}

func (f *fakeSettingsRepo) Upsert(ctx context.Context, tx *gorm.DB, settings *types.UserSettings) error {
	f.row = settings
	return nil
}

// -------------------- fixture --------------------

type engineFixture struct {
	userID   uuid.UUID
	clock    time.Time
	store    redis.Store
	entries  *fakeEntryRepo
	bio      *fakeBioRepo
	docs     *fakeDocRepo
	baseRepo *fakeBaselineDocRepo
	eng      *Engine
}

func newTestEngine(t *testing.T) *engineFixture {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	patternDet, err := patterns.NewDetector(log)
	if err != nil {
		t.Fatalf("patterns.NewDetector: %v", err)
	}
	stateDet, err := lifestate.NewDetector(log)
	if err != nil {
		t.Fatalf("lifestate.NewDetector: %v", err)
	}

	fx := &engineFixture{
		userID:   uuid.New(),
		clock:    time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		store:    redis.NewMemoryStore(),
		entries:  &fakeEntryRepo{},
		bio:      &fakeBioRepo{},
		docs:     &fakeDocRepo{docs: map[string]*types.InsightDoc{}},
		baseRepo: &fakeBaselineDocRepo{},
	}

	eng, err := NewEngine(Deps{
		Log:           log,
		Store:         fx.store,
		Entries:       fx.entries,
		Biometrics:    fx.bio,
		InsightDocs:   fx.docs,
		Interventions: &fakeInterventionRepo{},
		Settings:      &fakeSettingsRepo{},
		Patterns:      patternDet,
		Baselines:     baseline.NewManager(fx.baseRepo, log),
		States:        stateDet,
		StateDocs:     lifestate.NewManager(&fakeStateDocRepo{}, log),
		Threads:       threads.NewManager(nil, &fakeThreadRepo{}, log),
		Feedback:      rules.NewFeedbackManager(&fakeFeedbackRepo{}, log),
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	eng.now = func() time.Time { return fx.clock }
	eng.jitter = func() float64 { return 0 }
	fx.eng = eng
	return fx
}

func (fx *engineFixture) seedEntries(n int, mood float64, tags ...string) {
	rows := make([]*types.Entry, 0, n)
	for i := 0; i < n; i++ {
		m := mood
		rows = append(rows, &types.Entry{
			ID:          uuid.New(),
			UserID:      fx.userID,
			Text:        "wrote through the day and kept it honest",
			Mood:        &m,
			Tags:        append([]string(nil), tags...),
			EffectiveAt: fx.clock.AddDate(0, 0, -i),
		})
	}
	fx.entries.rows = rows
}

func findByID(list []types.Insight, id string) *types.Insight {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

// -------------------- tests --------------------

func TestGeneratePersistsEveryCategory(t *testing.T) {
	fx := newTestEngine(t)
	fx.seedEntries(5, 0.7)

	res, err := fx.eng.Generate(context.Background(), fx.userID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.DataStatus.Entries != 5 || res.DataStatus.ScoredEntries != 5 {
		t.Fatalf("data status = %+v", res.DataStatus)
	}
	if len(fx.docs.docs) != 4 {
		t.Fatalf("persisted %d category docs, want 4", len(fx.docs.docs))
	}
	onboarding := StableID("calibration", "onboarding")
	if findByID(res.Categories[types.CategoryCalibration], onboarding) == nil {
		t.Fatalf("onboarding notice missing from %+v", res.Categories[types.CategoryCalibration])
	}
}

func TestGenerateIdempotentAcrossRuns(t *testing.T) {
	fx := newTestEngine(t)
	fx.seedEntries(5, 0.7)
	ctx := context.Background()

	first, err := fx.eng.Generate(ctx, fx.userID)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	firstAt := fx.clock

	fx.clock = fx.clock.Add(time.Hour)
	second, err := fx.eng.Generate(ctx, fx.userID)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	for _, cat := range insightCategories {
		a, b := idsOf(first.Categories[cat]), idsOf(second.Categories[cat])
		if len(a) != len(b) {
			t.Fatalf("category %s changed size across identical runs: %v vs %v", cat, a, b)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("category %s ids drifted: %v vs %v", cat, a, b)
			}
		}
	}

	onboarding := findByID(fx.docs.docs[types.CategoryCalibration].Active, StableID("calibration", "onboarding"))
	if onboarding == nil {
		t.Fatalf("onboarding notice missing after second run")
	}
	if !onboarding.FirstSeen.Equal(firstAt) {
		t.Fatalf("FirstSeen = %v, want preserved %v", onboarding.FirstSeen, firstAt)
	}
	if !onboarding.LastSeen.Equal(fx.clock) {
		t.Fatalf("LastSeen = %v, want refreshed %v", onboarding.LastSeen, fx.clock)
	}
}

func idsOf(list []types.Insight) []string {
	out := make([]string, 0, len(list))
	for _, in := range list {
		out = append(out, in.ID)
	}
	sort.Strings(out)
	return out
}

func TestGenerateRespectsDismissals(t *testing.T) {
	fx := newTestEngine(t)
	fx.seedEntries(5, 0.7)
	onboarding := StableID("calibration", "onboarding")
	fx.docs.docs[types.CategoryCalibration] = &types.InsightDoc{
		ID:       uuid.New(),
		UserID:   fx.userID,
		Category: types.CategoryCalibration,
		History: []types.Insight{{
			ID:        onboarding,
			Title:     "Keep writing to unlock personal baselines",
			Dismissed: true,
			FirstSeen: fx.clock.Add(-48 * time.Hour),
			LastSeen:  fx.clock.Add(-24 * time.Hour),
		}},
		GeneratedAt: fx.clock.Add(-24 * time.Hour),
		ExpiresAt:   fx.clock.Add(-18 * time.Hour),
	}

	res, err := fx.eng.Generate(context.Background(), fx.userID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if findByID(res.Categories[types.CategoryCalibration], onboarding) != nil {
		t.Fatalf("dismissed insight resurfaced")
	}
	kept := findByID(fx.docs.docs[types.CategoryCalibration].History, onboarding)
	if kept == nil || !kept.Dismissed {
		t.Fatalf("dismissal lost from history: %+v", kept)
	}
}

func TestGenerateEntryFetchFailureFailsGeneration(t *testing.T) {
	fx := newTestEngine(t)
	fx.entries.fail = errors.New("db down")

	if _, err := fx.eng.Generate(context.Background(), fx.userID); err == nil {
		t.Fatalf("expected error when entries cannot be fetched")
	}
	if fx.docs.upserts != 0 {
		t.Fatalf("insight docs written despite failed fetch")
	}
}

func TestGenerateConcurrentReturnsCachedInFlight(t *testing.T) {
	fx := newTestEngine(t)
	fx.seedEntries(5, 0.7)
	ctx := context.Background()

	cached := types.Insight{ID: "c1", Title: "Cached finding", Priority: types.PriorityModerate}
	fx.docs.docs[types.CategoryReflections] = &types.InsightDoc{
		ID:          uuid.New(),
		UserID:      fx.userID,
		Category:    types.CategoryReflections,
		Active:      []types.Insight{cached},
		GeneratedAt: fx.clock.Add(-time.Hour),
		ExpiresAt:   fx.clock.Add(5 * time.Hour),
	}

	held, err := fx.store.AcquireLock(ctx, lockKey(fx.userID), time.Minute)
	if err != nil || !held {
		t.Fatalf("could not pre-acquire lock: held=%v err=%v", held, err)
	}

	res, err := fx.eng.Generate(ctx, fx.userID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.DataStatus.InFlight {
		t.Fatalf("expected in-flight result, got %+v", res.DataStatus)
	}
	if fx.docs.upserts != 0 {
		t.Fatalf("concurrent caller wrote docs")
	}
	if findByID(res.Categories[types.CategoryReflections], "c1") == nil {
		t.Fatalf("cached insight not returned to the concurrent caller")
	}
}

func TestGenerateDegradesWithoutBiometrics(t *testing.T) {
	fx := newTestEngine(t)
	fx.seedEntries(5, 0.7)
	fx.bio.fail = errors.New("wearable api down")

	res, err := fx.eng.Generate(context.Background(), fx.userID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	found := false
	for _, d := range res.DataStatus.Degraded {
		if d == "biometrics" {
			found = true
		}
	}
	if !found {
		t.Fatalf("degraded sources = %v, want biometrics listed", res.DataStatus.Degraded)
	}
}

func TestCachedStaleness(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()

	res, err := fx.eng.Cached(ctx, fx.userID)
	if err != nil || !res.Stale {
		t.Fatalf("empty cache must read stale: %+v err=%v", res, err)
	}

	fx.docs.docs[types.CategoryReflections] = &types.InsightDoc{
		ID:          uuid.New(),
		UserID:      fx.userID,
		Category:    types.CategoryReflections,
		Active:      []types.Insight{{ID: "c1", Title: "Cached finding"}},
		GeneratedAt: fx.clock.Add(-time.Hour),
		ExpiresAt:   fx.clock.Add(5 * time.Hour),
	}
	res, err = fx.eng.Cached(ctx, fx.userID)
	if err != nil || res.Stale {
		t.Fatalf("fresh doc must not read stale: %+v err=%v", res, err)
	}

	if err := fx.eng.MarkStale(ctx, fx.userID); err != nil {
		t.Fatalf("MarkStale: %v", err)
	}
	res, err = fx.eng.Cached(ctx, fx.userID)
	if err != nil || !res.Stale {
		t.Fatalf("invalidation mark ignored: %+v err=%v", res, err)
	}

	fx.docs.docs[types.CategoryReflections].ExpiresAt = fx.clock.Add(-time.Minute)
	if err := fx.store.ClearFlag(ctx, staleKey(fx.userID)); err != nil {
		t.Fatalf("ClearFlag: %v", err)
	}
	res, err = fx.eng.Cached(ctx, fx.userID)
	if err != nil || !res.Stale {
		t.Fatalf("expired doc must read stale: %+v err=%v", res, err)
	}
}

func TestReassessRebuildsAndRegenerates(t *testing.T) {
	fx := newTestEngine(t)
	fx.seedEntries(12, 0.6)

	if err := fx.eng.Reassess(context.Background(), fx.userID); err != nil {
		t.Fatalf("Reassess: %v", err)
	}
	if fx.baseRepo.upserts == 0 {
		t.Fatalf("baselines not recomputed")
	}
	if len(fx.docs.docs) != 4 {
		t.Fatalf("regeneration did not persist category docs, got %d", len(fx.docs.docs))
	}
}
