package rules

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

type fakeRuleFeedbackRepo struct {
	rows map[string]*types.RuleFeedback
}

func newFakeRuleFeedbackRepo() *fakeRuleFeedbackRepo {
	return &fakeRuleFeedbackRepo{rows: map[string]*types.RuleFeedback{}}
}

func (f *fakeRuleFeedbackRepo) rowKey(userID uuid.UUID, ruleKey string) string {
	return userID.String() + "|" + ruleKey
}

func (f *fakeRuleFeedbackRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.RuleFeedback, error) {
	var out []*types.RuleFeedback
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeRuleFeedbackRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ruleKey string) (*types.RuleFeedback, error) {
	row, ok := f.rows[f.rowKey(userID, ruleKey)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeRuleFeedbackRepo) Upsert(ctx context.Context, tx *gorm.DB, fb *types.RuleFeedback) error {
	if fb.ID == uuid.Nil {
		fb.ID = uuid.New()
	}
	cp := *fb
	f.rows[f.rowKey(fb.UserID, fb.RuleKey)] = &cp
	return nil
}

func newTestFeedbackManager(t *testing.T, repo *fakeRuleFeedbackRepo) *FeedbackManager {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewFeedbackManager(repo, log)
}

func TestRecordAccumulatesThenDismisses(t *testing.T) {
	repo := newFakeRuleFeedbackRepo()
	m := newTestFeedbackManager(t, repo)
	userID := uuid.New()
	ctx := context.Background()

	row, err := m.Record(ctx, userID, "workout", true)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if math.Abs(row.Adjustment-0.1) > 1e-9 || row.Verdict != VerdictConfirmed {
		t.Fatalf("first confirm = %+v, want adjustment 0.1", row)
	}
	if row.State != types.ValidationConfirmed {
		t.Fatalf("state = %q, want confirmed", row.State)
	}

	row, err = m.Record(ctx, userID, "workout", true)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if math.Abs(row.Adjustment-0.2) > 1e-9 {
		t.Fatalf("second confirm adjustment = %v, want 0.2", row.Adjustment)
	}

	row, err = m.Record(ctx, userID, "workout", false)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if math.Abs(row.Adjustment-0.0) > 1e-9 || row.Verdict != VerdictRejected {
		t.Fatalf("rejection = %+v, want adjustment back to 0", row)
	}
	if row.State != types.ValidationDismissed {
		t.Fatalf("state = %q, want dismissed", row.State)
	}

	// Dismissal is sticky even if the user later confirms.
	row, err = m.Record(ctx, userID, "workout", true)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if row.State != types.ValidationDismissed {
		t.Fatalf("state after confirm-on-dismissed = %q, want dismissed", row.State)
	}

	if _, err := m.Record(ctx, uuid.Nil, "workout", true); err == nil {
		t.Fatalf("Record without a user id must fail")
	}
}

func TestRecordClampsAdjustment(t *testing.T) {
	repo := newFakeRuleFeedbackRepo()
	m := newTestFeedbackManager(t, repo)
	userID := uuid.New()

	var row *types.RuleFeedback
	var err error
	for i := 0; i < 12; i++ {
		row, err = m.Record(context.Background(), userID, "short_sleep", true)
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}
	if row.Adjustment != maxAdjustment {
		t.Fatalf("adjustment = %v, want clamped at %v", row.Adjustment, maxAdjustment)
	}
}

func TestApplyShiftsConfidenceAndRebuckets(t *testing.T) {
	repo := newFakeRuleFeedbackRepo()
	m := newTestFeedbackManager(t, repo)
	userID := uuid.New()
	seed := []*types.RuleFeedback{
		{UserID: userID, RuleKey: "a", Adjustment: 0.1, State: types.ValidationConfirmed},
		{UserID: userID, RuleKey: "b", Adjustment: -0.2, State: types.ValidationDismissed},
		{UserID: userID, RuleKey: "d", Adjustment: 0.7, State: types.ValidationConfirmed},
	}
	for _, row := range seed {
		if err := repo.Upsert(context.Background(), nil, row); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	mined := []Rule{
		{Key: "a", Confidence: 0.45, Validation: types.ValidationHidden},
		{Key: "b", Confidence: 0.9, Validation: types.ValidationConfirmed},
		{Key: "c", Confidence: 0.6, Validation: types.ValidationPending},
		{Key: "d", Confidence: 0.45, Validation: types.ValidationHidden},
	}
	out, err := m.Apply(context.Background(), userID, mined)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	byKey := map[string]Rule{}
	for _, r := range out {
		byKey[r.Key] = r
	}
	if a := byKey["a"]; math.Abs(a.Confidence-0.55) > 1e-9 || a.Validation != types.ValidationPending {
		t.Fatalf("rule a = %+v, want confidence 0.55 pending", a)
	}
	if b := byKey["b"]; b.Validation != types.ValidationDismissed {
		t.Fatalf("rule b = %+v, want dismissed regardless of mined strength", b)
	}
	if c := byKey["c"]; c.Confidence != 0.6 || c.Validation != types.ValidationPending {
		t.Fatalf("rule c = %+v, want untouched", c)
	}
	if d := byKey["d"]; d.Confidence != 1.0 || d.Validation != types.ValidationConfirmed {
		t.Fatalf("rule d = %+v, want confidence clamped to 1.0 confirmed", d)
	}

	// Mined input is not mutated.
	if mined[0].Confidence != 0.45 {
		t.Fatalf("Apply mutated its input: %+v", mined[0])
	}
}
