package insight

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/fathom-backend/internal/clients/redis"
	"github.com/yungbote/fathom-backend/internal/modules/insight/baseline"
	"github.com/yungbote/fathom-backend/internal/modules/insight/features"
	"github.com/yungbote/fathom-backend/internal/modules/insight/lifestate"
	"github.com/yungbote/fathom-backend/internal/modules/insight/patterns"
	"github.com/yungbote/fathom-backend/internal/modules/insight/rules"
	"github.com/yungbote/fathom-backend/internal/modules/insight/sequences"
	"github.com/yungbote/fathom-backend/internal/modules/insight/synthesis"
	"github.com/yungbote/fathom-backend/internal/modules/insight/threads"
	"github.com/yungbote/fathom-backend/internal/platform/envutil"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/repos"
	"github.com/yungbote/fathom-backend/internal/types"
)

const (
	lockTTL         = 2 * time.Minute
	staleTTL        = 7 * 24 * time.Hour
	defaultCacheTTL = 6 * time.Hour

	entryWindow = 100
	bioWindow   = 120

	historyCap = 50
)

var insightCategories = []string{
	types.CategoryReflections,
	types.CategoryCorrelations,
	types.CategoryRecovery,
	types.CategoryCalibration,
}

func lockKey(userID uuid.UUID) string { return "insight:lock:" + userID.String() }

func staleKey(userID uuid.UUID) string { return "insight:stale:" + userID.String() }

func rotationKey(userID uuid.UUID, category string) string {
	return "insight:rotation:" + userID.String() + ":" + category
}

// DataStatus tells the consumer how much evidence backed a generation and
// which optional sources fell away.
type DataStatus struct {
	Entries       int      `json:"entries"`
	ScoredEntries int      `json:"scored_entries"`
	BiometricDays int      `json:"biometric_days"`
	BaselineReady bool     `json:"baseline_ready"`
	Degraded      []string `json:"degraded,omitempty"`
	InFlight      bool     `json:"in_flight,omitempty"`
}

type GenerateResult struct {
	Categories  map[string][]types.Insight `json:"categories"`
	DataStatus  DataStatus                 `json:"data_status"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

type CachedResult struct {
	Categories  map[string][]types.Insight `json:"categories"`
	Stale       bool                       `json:"stale"`
	GeneratedAt time.Time                  `json:"generated_at"`
	ExpiresAt   time.Time                  `json:"expires_at"`
}

// Deps wires the engine. Everything DB-backed is required; Synth may be
// nil (narration off) and Store is expected to be the in-process fallback
// when redis is absent, never nil.
type Deps struct {
	Log           *logger.Logger
	Store         redis.Store
	Entries       repos.EntryRepo
	Biometrics    repos.BiometricDayRepo
	InsightDocs   repos.InsightDocRepo
	Interventions repos.InterventionRepo
	Settings      repos.UserSettingsRepo
	Patterns      *patterns.Detector
	Baselines     *baseline.Manager
	States        *lifestate.Detector
	StateDocs     *lifestate.Manager
	Threads       *threads.Manager
	Feedback      *rules.FeedbackManager
	Synth         synthesis.Port
}

// Engine runs the full generation pipeline for one user at a time.
type Engine struct {
	log           *logger.Logger
	store         redis.Store
	entries       repos.EntryRepo
	biometrics    repos.BiometricDayRepo
	insightDocs   repos.InsightDocRepo
	interventions repos.InterventionRepo
	settings      repos.UserSettingsRepo
	patterns      *patterns.Detector
	baselines     *baseline.Manager
	states        *lifestate.Detector
	stateDocs     *lifestate.Manager
	threadMgr     *threads.Manager
	feedback      *rules.FeedbackManager
	synth         synthesis.Port

	cacheTTL time.Duration
	tracer   trace.Tracer
	now      func() time.Time
	jitter   func() float64
}

func NewEngine(d Deps) (*Engine, error) {
	switch {
	case d.Log == nil:
		return nil, fmt.Errorf("logger required")
	case d.Store == nil:
		return nil, fmt.Errorf("store required")
	case d.Entries == nil || d.Biometrics == nil || d.InsightDocs == nil:
		return nil, fmt.Errorf("entry, biometric and insight repos required")
	case d.Interventions == nil || d.Settings == nil:
		return nil, fmt.Errorf("intervention and settings repos required")
	case d.Patterns == nil || d.Baselines == nil || d.States == nil || d.StateDocs == nil:
		return nil, fmt.Errorf("pattern, baseline and state components required")
	case d.Threads == nil || d.Feedback == nil:
		return nil, fmt.Errorf("thread manager and rule feedback required")
	}
	return &Engine{
		log:           d.Log.With("component", "insight_engine"),
		store:         d.Store,
		entries:       d.Entries,
		biometrics:    d.Biometrics,
		insightDocs:   d.InsightDocs,
		interventions: d.Interventions,
		settings:      d.Settings,
		patterns:      d.Patterns,
		baselines:     d.Baselines,
		states:        d.States,
		stateDocs:     d.StateDocs,
		threadMgr:     d.Threads,
		feedback:      d.Feedback,
		synth:         d.Synth,
		cacheTTL:      envutil.Dur("INSIGHT_CACHE_TTL", defaultCacheTTL),
		tracer:        otel.Tracer("insight"),
		now:           func() time.Time { return time.Now().UTC() },
		jitter:        func() float64 { return rand.Float64() * 3 },
	}, nil
}

// -------------------- generation --------------------

// Generate runs the full pipeline and replaces the user's cached insight
// documents. At most one generation runs per user; a concurrent caller
// gets the cached set back marked in-flight.
func (e *Engine) Generate(ctx context.Context, userID uuid.UUID) (*GenerateResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	ctx, span := e.tracer.Start(ctx, "insight.generate")
	defer span.End()
	log := e.log.With("user_id", userID.String())

	held, err := e.store.AcquireLock(ctx, lockKey(userID), lockTTL)
	if err != nil {
		log.Warn("generation lock unavailable, proceeding unlocked", "error", err)
		held = true
	}
	if !held {
		cached, cerr := e.Cached(ctx, userID)
		if cerr != nil {
			return nil, cerr
		}
		return &GenerateResult{
			Categories:  cached.Categories,
			DataStatus:  DataStatus{InFlight: true},
			GeneratedAt: cached.GeneratedAt,
		}, nil
	}
	defer func() {
		if rerr := e.store.ReleaseLock(context.WithoutCancel(ctx), lockKey(userID)); rerr != nil {
			log.Warn("generation lock release failed", "error", rerr)
		}
	}()

	src, err := e.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := e.now()

	// Stage: features and pattern aggregation over the window.
	featureSets := make([]features.FeatureSet, 0, len(src.entries))
	for i, en := range src.entries {
		featureSets = append(featureSets, features.Extract(en, src.entries[:i], src.bioByDay[types.DayKey(en.EffectiveAt)]))
	}
	stats := e.patterns.DetectInPeriod(src.entries, src.bioByDay)

	// Stage: life-state detection over entries, threads and biometrics.
	det := e.states.Detect(lifestate.Signals{Entries: src.entries, Threads: src.threads, BioDays: src.bioDays})
	stateDoc, stateChanged, err := e.stateDocs.Update(ctx, userID, det)
	if err != nil {
		log.Warn("life-state update degraded", "error", err)
		src.degraded = append(src.degraded, "life_state")
	}

	// Stage: personal baselines. A pending invalidation mark forces a
	// recompute; the refreshed doc persists even if later stages fail.
	if marked, ferr := e.store.HasFlag(ctx, staleKey(userID)); ferr == nil && marked {
		if ierr := e.baselines.Invalidate(ctx, userID); ierr != nil {
			log.Warn("baseline invalidation failed", "error", ierr)
		}
	}
	baseDoc, _, err := e.baselines.Ensure(ctx, userID, src.entries, src.bioDays)
	if err != nil {
		log.Warn("baseline refresh degraded", "error", err)
		src.degraded = append(src.degraded, "baseline")
	}
	baselineReady := baseDoc != nil && baseDoc.SampleSize >= baseline.MinEntries

	// Stage: rule and sequence mining, independent of each other.
	var (
		minedRules []rules.Rule
		declines   []sequences.DeclineCluster
		recovery   *sequences.RecoveryProfile
	)
	mg, mctx := errgroup.WithContext(ctx)
	mg.Go(func() error {
		txs := make([]rules.Transaction, 0, len(featureSets))
		for _, fs := range featureSets {
			txs = append(txs, rules.TransactionFrom(fs))
		}
		mined := rules.Mine(txs, rules.Options{})
		adjusted, aerr := e.feedback.Apply(mctx, userID, mined)
		if aerr != nil {
			log.Warn("rule feedback overlay degraded", "error", aerr)
			adjusted = mined
		}
		minedRules = adjusted
		return nil
	})
	mg.Go(func() error {
		events := sequences.DetectMoodEvents(src.entries)
		declines = sequences.MineDeclines(src.entries, events)
		recovery = sequences.AnalyzeRecoveries(src.entries)
		return nil
	})
	// Miner closures degrade internally and never return an error.
	_ = mg.Wait()

	settings := src.settings
	if settings == nil {
		settings = types.DefaultSettings(userID)
	}

	// Stage: producers, including synthesis and the optional enrichments.
	candidates := e.produce(ctx, producerInput{
		now:           now,
		entries:       src.entries,
		bioByDay:      src.bioByDay,
		features:      featureSets,
		stats:         stats,
		baselineDoc:   baseDoc,
		baselineReady: baselineReady,
		detection:     det,
		stateDoc:      stateDoc,
		stateChanged:  stateChanged,
		threads:       src.threads,
		rules:         minedRules,
		declines:      declines,
		recovery:      recovery,
		interventions: src.interventions,
		settings:      settings,
	})

	// Stage: dedup, persistence and rotation per category.
	result := &GenerateResult{Categories: map[string][]types.Insight{}, GeneratedAt: now}
	expires := now.Add(e.cacheTTL)
	for _, cat := range insightCategories {
		prev := src.docs[cat]
		active, perr := e.persistCategory(ctx, userID, cat, candidates[cat], prev, src.rotation[cat], settings.DedupThreshold, now, expires)
		if perr != nil {
			log.Error("insight persistence failed, keeping last known good", "category", cat, "error", perr)
			src.degraded = append(src.degraded, "persist:"+cat)
			if prev != nil && len(prev.Active) > 0 {
				result.Categories[cat] = []types.Insight(prev.Active)
			}
			continue
		}
		if len(active) > 0 {
			result.Categories[cat] = active
		}
	}

	if err := e.store.ClearFlag(ctx, staleKey(userID)); err != nil {
		log.Warn("stale mark clear failed", "error", err)
	}

	scored := 0
	for _, en := range src.entries {
		if en.HasMood() {
			scored++
		}
	}
	sort.Strings(src.degraded)
	result.DataStatus = DataStatus{
		Entries:       len(src.entries),
		ScoredEntries: scored,
		BiometricDays: len(src.bioDays),
		BaselineReady: baselineReady,
		Degraded:      src.degraded,
	}
	log.Info("insights generated",
		"entries", len(src.entries),
		"rules", len(minedRules),
		"degraded", strings.Join(src.degraded, ","))
	return result, nil
}

// -------------------- source fetch --------------------

type sourceData struct {
	entries       []*types.Entry // chronological
	bioDays       []*types.BiometricDay
	bioByDay      map[string]*types.BiometricDay
	threads       []*types.Thread
	interventions []*types.Intervention
	settings      *types.UserSettings
	docs          map[string]*types.InsightDoc
	rotation      map[string][]rotationRecord
	degraded      []string
}

// fetch pulls every generation source in parallel. Entries are the spine:
// their failure fails the fetch. Every other source degrades to absent.
func (e *Engine) fetch(ctx context.Context, userID uuid.UUID) (*sourceData, error) {
	ctx, span := e.tracer.Start(ctx, "insight.fetch")
	defer span.End()

	src := &sourceData{
		bioByDay: map[string]*types.BiometricDay{},
		docs:     map[string]*types.InsightDoc{},
		rotation: map[string][]rotationRecord{},
	}
	var mu sync.Mutex
	degrade := func(source string, err error) {
		e.log.Warn("insight source fetch degraded", "source", source, "error", err, "user_id", userID.String())
		mu.Lock()
		src.degraded = append(src.degraded, source)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := e.entries.ListRecent(gctx, nil, userID, entryWindow)
		if err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
		src.entries = rows
		return nil
	})
	g.Go(func() error {
		rows, err := e.biometrics.ListRecent(gctx, nil, userID, bioWindow)
		if err != nil {
			degrade("biometrics", err)
			return nil
		}
		src.bioDays = rows
		return nil
	})
	g.Go(func() error {
		rows, err := e.threadMgr.Active(gctx, userID)
		if err != nil {
			degrade("threads", err)
			return nil
		}
		src.threads = rows
		return nil
	})
	g.Go(func() error {
		rows, err := e.interventions.ListActive(gctx, nil, userID, e.now())
		if err != nil {
			degrade("interventions", err)
			return nil
		}
		src.interventions = rows
		return nil
	})
	g.Go(func() error {
		row, err := e.settings.Get(gctx, nil, userID)
		if err != nil {
			degrade("settings", err)
			return nil
		}
		src.settings = row
		return nil
	})
	g.Go(func() error {
		rows, err := e.insightDocs.ListByUser(gctx, nil, userID)
		if err != nil {
			degrade("insight_docs", err)
			return nil
		}
		for _, doc := range rows {
			if doc != nil {
				src.docs[doc.Category] = doc
			}
		}
		return nil
	})
	g.Go(func() error {
		for _, cat := range insightCategories {
			raws, err := e.store.ListRotation(gctx, rotationKey(userID, cat))
			if err != nil {
				degrade("rotation", err)
				return nil
			}
			src.rotation[cat] = decodeRotation(raws)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, day := range src.bioDays {
		if day != nil {
			src.bioByDay[day.Key()] = day
		}
	}
	return src, nil
}

// -------------------- persistence --------------------

// persistCategory dedups candidates against everything the user has seen
// in this category, replaces the active set and folds it into history. A
// write failure rolls back to the previous doc; an integrity failure on
// the staged doc cleans it the same way.
func (e *Engine) persistCategory(ctx context.Context, userID uuid.UUID, category string, candidates []types.Insight, prev *types.InsightDoc, records []rotationRecord, threshold float64, now, expires time.Time) ([]types.Insight, error) {
	var prevActive, prevHistory []types.Insight
	if prev != nil {
		prevActive = []types.Insight(prev.Active)
		prevHistory = []types.Insight(prev.History)
	}
	known := map[string]types.Insight{}
	for _, in := range prevHistory {
		known[in.ID] = in
	}
	for _, in := range prevActive {
		known[in.ID] = in
	}

	seen := make([]types.Insight, 0, len(prevActive)+len(prevHistory))
	seen = append(seen, prevActive...)
	seen = append(seen, prevHistory...)
	d := newDeduper(seen, threshold)

	var active []types.Insight
	for _, cand := range candidates {
		old, existed := known[cand.ID]
		if existed && old.Dismissed {
			// dismissals stick across regenerations
			continue
		}
		if !d.admit(cand) {
			continue
		}
		cand.FirstSeen = now
		cand.LastSeen = now
		if existed {
			cand.FirstSeen = old.FirstSeen
		}
		active = append(active, cand)
	}
	active = orderForRotation(active, records, now, e.jitter)

	doc := &types.InsightDoc{
		UserID:      userID,
		Category:    category,
		Active:      active,
		History:     mergeHistory(prevHistory, prevActive, active),
		GeneratedAt: now,
		ExpiresAt:   expires,
	}
	if prev != nil {
		doc.ID = prev.ID
		doc.CreatedAt = prev.CreatedAt
	}

	if err := e.insightDocs.Upsert(ctx, nil, doc); err != nil {
		e.restore(ctx, userID, category, prev)
		return nil, err
	}
	if err := validateDoc(doc); err != nil {
		e.restore(ctx, userID, category, prev)
		return nil, fmt.Errorf("staged doc failed validation: %w", err)
	}

	if len(active) > 0 {
		rec := encodeRotation(rotationRecord{ID: active[0].ID, ShownAt: now})
		if err := e.store.PushRotation(ctx, rotationKey(userID, category), rec, rotationMaxRecords, rotationTTL); err != nil {
			e.log.Warn("rotation record push failed", "category", category, "error", err)
		}
	}
	return active, nil
}

// restore puts the previous doc back, or an empty one when the category
// had no prior doc, so a broken staged write never stays visible.
func (e *Engine) restore(ctx context.Context, userID uuid.UUID, category string, prev *types.InsightDoc) {
	doc := prev
	if doc == nil {
		doc = &types.InsightDoc{
			UserID:      userID,
			Category:    category,
			GeneratedAt: e.now(),
			ExpiresAt:   e.now(),
		}
	}
	if err := e.insightDocs.Upsert(ctx, nil, doc); err != nil {
		e.log.Error("insight doc restore failed", "category", category, "error", err)
	}
}

// mergeHistory folds the new active set into the bounded history, keyed
// by stable id. The freshest copy of an insight wins, first-seen stays
// the earliest and a dismissal never un-dismisses.
func mergeHistory(prevHistory, prevActive, active []types.Insight) []types.Insight {
	byID := map[string]types.Insight{}
	order := make([]string, 0, len(prevHistory)+len(prevActive)+len(active))
	note := func(in types.Insight) {
		if in.ID == "" {
			return
		}
		old, ok := byID[in.ID]
		if !ok {
			byID[in.ID] = in
			order = append(order, in.ID)
			return
		}
		keep := in
		if old.LastSeen.After(in.LastSeen) {
			keep = old
		}
		if old.FirstSeen.Before(keep.FirstSeen) && !old.FirstSeen.IsZero() {
			keep.FirstSeen = old.FirstSeen
		}
		keep.Dismissed = keep.Dismissed || old.Dismissed || in.Dismissed
		byID[in.ID] = keep
	}
	for _, in := range prevHistory {
		note(in)
	}
	for _, in := range prevActive {
		note(in)
	}
	for _, in := range active {
		note(in)
	}

	out := make([]types.Insight, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].Priority < out[j].Priority
	})
	if len(out) > historyCap {
		out = out[:historyCap]
	}
	return out
}

func validateDoc(doc *types.InsightDoc) error {
	ids := map[string]bool{}
	for _, in := range doc.Active {
		if in.ID == "" {
			return fmt.Errorf("active insight with empty id")
		}
		if strings.TrimSpace(in.Title) == "" {
			return fmt.Errorf("active insight %s has an empty title", in.ID)
		}
		if ids[in.ID] {
			return fmt.Errorf("duplicate active insight id %s", in.ID)
		}
		ids[in.ID] = true
	}
	for _, in := range doc.History {
		if in.ID == "" || strings.TrimSpace(in.Title) == "" {
			return fmt.Errorf("malformed history insight %q", in.ID)
		}
	}
	return nil
}

// -------------------- cached reads --------------------

// Cached returns the stored insight documents without generating. Stale
// means expired or explicitly invalidated; the caller decides whether to
// kick off a regeneration.
func (e *Engine) Cached(ctx context.Context, userID uuid.UUID) (*CachedResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	docs, err := e.insightDocs.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	res := &CachedResult{Categories: map[string][]types.Insight{}, Stale: len(docs) == 0}
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if len(doc.Active) > 0 {
			res.Categories[doc.Category] = []types.Insight(doc.Active)
		}
		if now.After(doc.ExpiresAt) {
			res.Stale = true
		}
		if doc.GeneratedAt.After(res.GeneratedAt) {
			res.GeneratedAt = doc.GeneratedAt
		}
		if res.ExpiresAt.IsZero() || doc.ExpiresAt.Before(res.ExpiresAt) {
			res.ExpiresAt = doc.ExpiresAt
		}
	}
	if marked, ferr := e.store.HasFlag(ctx, staleKey(userID)); ferr == nil && marked {
		res.Stale = true
	}
	return res, nil
}

// MarkStale flags the user's cached insights as invalidated. Corrective
// entry edits call it; the next Generate also forces a baseline recompute
// off the same mark.
func (e *Engine) MarkStale(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return nil
	}
	return e.store.SetFlag(ctx, staleKey(userID), staleTTL)
}

// -------------------- reassessment --------------------

// Reassess rebuilds derived state stage by stage: baselines, thread
// calibration, then a full regeneration. Every completed stage stays
// persisted; cancellation between stages loses nothing already done.
func (e *Engine) Reassess(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user id required")
	}
	ctx, span := e.tracer.Start(ctx, "insight.reassess")
	defer span.End()
	log := e.log.With("user_id", userID.String())

	entries, err := e.entries.ListRecent(ctx, nil, userID, entryWindow)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	bioDays, err := e.biometrics.ListRecent(ctx, nil, userID, bioWindow)
	if err != nil {
		log.Warn("biometric fetch degraded during reassessment", "error", err)
		bioDays = nil
	}

	if err := e.baselines.Invalidate(ctx, userID); err != nil {
		return fmt.Errorf("invalidate baselines: %w", err)
	}
	if _, _, err := e.baselines.Ensure(ctx, userID, entries, bioDays); err != nil {
		return fmt.Errorf("recompute baselines: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	updated, err := e.threadMgr.Recalibrate(ctx, userID)
	if err != nil {
		return fmt.Errorf("recalibrate threads: %w", err)
	}
	if updated > 0 {
		log.Info("threads recalibrated", "updated", updated)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err = e.Generate(ctx, userID)
	return err
}
