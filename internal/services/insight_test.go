package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/modules/insight/rules"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

type fakeServiceDocRepo struct {
	docs    map[string]*types.InsightDoc
	upserts int
}

func newFakeServiceDocRepo() *fakeServiceDocRepo {
	return &fakeServiceDocRepo{docs: map[string]*types.InsightDoc{}}
}

func (f *fakeServiceDocRepo) key(userID uuid.UUID, category string) string {
	return userID.String() + "/" + category
}

func (f *fakeServiceDocRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, category string) (*types.InsightDoc, error) {
	return f.docs[f.key(userID, category)], nil
}

func (f *fakeServiceDocRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.InsightDoc, error) {
	var out []*types.InsightDoc
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeServiceDocRepo) Upsert(ctx context.Context, tx *gorm.DB, doc *types.InsightDoc) error {
	f.upserts++
	f.docs[f.key(doc.UserID, doc.Category)] = doc
	return nil
}

func (f *fakeServiceDocRepo) ListExpiredUsers(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, d := range f.docs {
		if !d.ExpiresAt.After(cutoff) {
			out = append(out, d.UserID)
		}
	}
	return out, nil
}

type fakeServiceFeedbackRepo struct {
	rows map[string]*types.RuleFeedback
}

func newFakeServiceFeedbackRepo() *fakeServiceFeedbackRepo {
	return &fakeServiceFeedbackRepo{rows: map[string]*types.RuleFeedback{}}
}

func (f *fakeServiceFeedbackRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.RuleFeedback, error) {
	var out []*types.RuleFeedback
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeServiceFeedbackRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ruleKey string) (*types.RuleFeedback, error) {
	return f.rows[userID.String()+"/"+ruleKey], nil
}

func (f *fakeServiceFeedbackRepo) Upsert(ctx context.Context, tx *gorm.DB, fb *types.RuleFeedback) error {
	f.rows[fb.UserID.String()+"/"+fb.RuleKey] = fb
	return nil
}

func newTestInsightService(t *testing.T) (InsightService, *fakeServiceDocRepo, *fakeServiceFeedbackRepo, uuid.UUID) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	docs := newFakeServiceDocRepo()
	fbRepo := newFakeServiceFeedbackRepo()
	svc := NewInsightService(nil, log, docs, nil, rules.NewFeedbackManager(fbRepo, log))
	return svc, docs, fbRepo, uuid.New()
}

func seedDoc(docs *fakeServiceDocRepo, userID uuid.UUID, category string, active, history []types.Insight) {
	now := time.Now().UTC()
	docs.docs[docs.key(userID, category)] = &types.InsightDoc{
		ID:          uuid.New(),
		UserID:      userID,
		Category:    category,
		Active:      active,
		History:     history,
		GeneratedAt: now,
		ExpiresAt:   now.Add(6 * time.Hour),
	}
}

func TestDismissRemovesFromActiveKeepsHistory(t *testing.T) {
	svc, docs, _, userID := newTestInsightService(t)
	target := types.Insight{ID: "ins-1", Category: types.CategoryReflections, Kind: "pattern", Title: "Runs lift your mood"}
	other := types.Insight{ID: "ins-2", Category: types.CategoryReflections, Kind: "pattern", Title: "Late nights drag mornings"}
	seedDoc(docs, userID, types.CategoryReflections, []types.Insight{target, other}, nil)

	if err := svc.Dismiss(authedCtx(userID), "ins-1"); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	doc := docs.docs[docs.key(userID, types.CategoryReflections)]
	if len(doc.Active) != 1 || doc.Active[0].ID != "ins-2" {
		t.Fatalf("active after dismiss = %v", doc.Active)
	}
	if len(doc.History) != 1 || doc.History[0].ID != "ins-1" || !doc.History[0].Dismissed {
		t.Fatalf("dismissed insight not retained in history: %v", doc.History)
	}
}

func TestDismissHistoryOnlyInsight(t *testing.T) {
	svc, docs, _, userID := newTestInsightService(t)
	old := types.Insight{ID: "ins-old", Category: types.CategoryRecovery, Kind: "recovery_path", Title: "Walks speed recovery"}
	seedDoc(docs, userID, types.CategoryRecovery, nil, []types.Insight{old})

	if err := svc.Dismiss(authedCtx(userID), "ins-old"); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	doc := docs.docs[docs.key(userID, types.CategoryRecovery)]
	if !doc.History[0].Dismissed {
		t.Fatalf("history insight not marked dismissed")
	}
}

func TestDismissUnknownInsight(t *testing.T) {
	svc, _, _, userID := newTestInsightService(t)
	if err := svc.Dismiss(authedCtx(userID), "no-such-id"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestFeedbackRoutesRuleInsights(t *testing.T) {
	svc, docs, fbRepo, userID := newTestInsightService(t)
	ruleIns := types.Insight{
		ID:        "ins-rule",
		Category:  types.CategoryCorrelations,
		Kind:      "association_rule",
		Title:     "Morning walks lift your mood",
		SourceKey: "activity:walk=>mood_boost",
	}
	seedDoc(docs, userID, types.CategoryCorrelations, []types.Insight{ruleIns}, nil)

	if err := svc.Feedback(authedCtx(userID), "ins-rule", false); err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	row := fbRepo.rows[userID.String()+"/activity:walk=>mood_boost"]
	if row == nil {
		t.Fatalf("rule feedback not recorded")
	}
	if row.Verdict != rules.VerdictRejected || row.State != types.ValidationDismissed {
		t.Fatalf("rejection not persisted: %+v", row)
	}
}

func TestFeedbackOnNonRuleInsightIsAccepted(t *testing.T) {
	svc, docs, fbRepo, userID := newTestInsightService(t)
	ins := types.Insight{ID: "ins-state", Category: types.CategoryReflections, Kind: "state_change", Title: "You entered a stressed stretch"}
	seedDoc(docs, userID, types.CategoryReflections, []types.Insight{ins}, nil)

	if err := svc.Feedback(authedCtx(userID), "ins-state", true); err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if len(fbRepo.rows) != 0 {
		t.Fatalf("non-rule feedback should not touch rule validation: %v", fbRepo.rows)
	}
}

func TestInsightServiceRequiresAuth(t *testing.T) {
	svc, _, _, _ := newTestInsightService(t)
	if err := svc.Dismiss(context.Background(), "ins-1"); err == nil {
		t.Fatalf("expected unauthorized")
	}
	if err := svc.Feedback(context.Background(), "ins-1", true); err == nil {
		t.Fatalf("expected unauthorized")
	}
}
