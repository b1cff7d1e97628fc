package rules

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/repos"
	"github.com/yungbote/fathom-backend/internal/types"
)

const (
	confirmBonus  = 0.1
	rejectPenalty = 0.2

	// Cumulative adjustment is clamped so a long feedback streak cannot
	// push a rule outside recoverable range.
	maxAdjustment = 1.0
)

// Verdicts persisted on RuleFeedback rows.
const (
	VerdictConfirmed = "confirmed"
	VerdictRejected  = "rejected"
)

// FeedbackManager overlays persisted user verdicts onto freshly mined
// rules. Mining is stateless; this is where a verdict given last month
// still moves the same rule today.
type FeedbackManager struct {
	feedback repos.RuleFeedbackRepo
	log      *logger.Logger
}

func NewFeedbackManager(feedbackRepo repos.RuleFeedbackRepo, baseLog *logger.Logger) *FeedbackManager {
	return &FeedbackManager{
		feedback: feedbackRepo,
		log:      baseLog.With("component", "RuleFeedback"),
	}
}

// Apply returns a copy of mined with each rule's confidence shifted by the
// user's cumulative adjustment and re-bucketed. Dismissal is sticky: a
// rejected rule stays dismissed no matter how strong it mines later.
func (m *FeedbackManager) Apply(ctx context.Context, userID uuid.UUID, mined []Rule) ([]Rule, error) {
	rows, err := m.feedback.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*types.RuleFeedback, len(rows))
	for _, row := range rows {
		byKey[row.RuleKey] = row
	}

	out := make([]Rule, len(mined))
	copy(out, mined)
	for i := range out {
		row := byKey[out[i].Key]
		if row == nil {
			continue
		}
		out[i].Confidence = clampUnit(out[i].Confidence + row.Adjustment)
		if row.State == types.ValidationDismissed {
			out[i].Validation = types.ValidationDismissed
			continue
		}
		out[i].Validation = ValidationFor(out[i].Confidence)
	}
	return out, nil
}

// Record stores one verdict. Confirmation adds to the cumulative
// adjustment; rejection subtracts and dismisses the rule for good.
func (m *FeedbackManager) Record(ctx context.Context, userID uuid.UUID, ruleKey string, confirmed bool) (*types.RuleFeedback, error) {
	if userID == uuid.Nil || ruleKey == "" {
		return nil, fmt.Errorf("rule feedback needs a user id and a rule key")
	}
	row, err := m.feedback.Get(ctx, nil, userID, ruleKey)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &types.RuleFeedback{UserID: userID, RuleKey: ruleKey}
	}

	if confirmed {
		row.Adjustment = clampAdjustment(row.Adjustment + confirmBonus)
		row.Verdict = VerdictConfirmed
		if row.State != types.ValidationDismissed {
			row.State = types.ValidationConfirmed
		}
	} else {
		row.Adjustment = clampAdjustment(row.Adjustment - rejectPenalty)
		row.Verdict = VerdictRejected
		row.State = types.ValidationDismissed
	}

	if err := m.feedback.Upsert(ctx, nil, row); err != nil {
		return nil, err
	}
	m.log.Info("recorded rule feedback",
		"user_id", userID,
		"rule_key", ruleKey,
		"verdict", row.Verdict,
		"adjustment", row.Adjustment)
	return row, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampAdjustment(v float64) float64 {
	if v < -maxAdjustment {
		return -maxAdjustment
	}
	if v > maxAdjustment {
		return maxAdjustment
	}
	return v
}
