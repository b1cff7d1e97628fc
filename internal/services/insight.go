package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/modules/insight"
	"github.com/yungbote/fathom-backend/internal/modules/insight/rules"
	"github.com/yungbote/fathom-backend/internal/platform/apierr"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/repos"
	"github.com/yungbote/fathom-backend/internal/requestdata"
	"github.com/yungbote/fathom-backend/internal/types"
)

type InsightService interface {
	Generate(ctx context.Context) (*insight.GenerateResult, error)
	Cached(ctx context.Context) (*insight.CachedResult, error)
	Reassess(ctx context.Context) error
	// Feedback records whether an insight matched the user's experience.
	// Rule-backed insights feed the answer into rule validation.
	Feedback(ctx context.Context, insightID string, helpful bool) error
	// Dismiss hides an insight permanently; it never resurfaces even if
	// the underlying signal persists.
	Dismiss(ctx context.Context, insightID string) error
}

type insightService struct {
	db       *gorm.DB
	log      *logger.Logger
	docs     repos.InsightDocRepo
	engine   *insight.Engine
	feedback *rules.FeedbackManager
}

func NewInsightService(db *gorm.DB, log *logger.Logger, docs repos.InsightDocRepo, engine *insight.Engine, feedback *rules.FeedbackManager) InsightService {
	return &insightService{
		db:       db,
		log:      log.With("service", "InsightService"),
		docs:     docs,
		engine:   engine,
		feedback: feedback,
	}
}

func (s *insightService) Generate(ctx context.Context) (*insight.GenerateResult, error) {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthenticated", fmt.Errorf("no authenticated user"))
	}
	result, err := s.engine.Generate(ctx, userID)
	if err != nil {
		return nil, apierr.Internal("insight_generate_failed", err)
	}
	return result, nil
}

func (s *insightService) Cached(ctx context.Context) (*insight.CachedResult, error) {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthenticated", fmt.Errorf("no authenticated user"))
	}
	result, err := s.engine.Cached(ctx, userID)
	if err != nil {
		return nil, apierr.Internal("insight_cached_failed", err)
	}
	return result, nil
}

func (s *insightService) Reassess(ctx context.Context) error {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return apierr.Unauthorized("unauthenticated", fmt.Errorf("no authenticated user"))
	}
	if err := s.engine.Reassess(ctx, userID); err != nil {
		return apierr.Internal("insight_reassess_failed", err)
	}
	return nil
}

func (s *insightService) Feedback(ctx context.Context, insightID string, helpful bool) error {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return apierr.Unauthorized("unauthenticated", fmt.Errorf("no authenticated user"))
	}
	if insightID == "" {
		return apierr.BadRequest("insight_id_required", fmt.Errorf("insight id is empty"))
	}
	target, _, err := s.locate(ctx, userID, insightID)
	if err != nil {
		return err
	}
	if target.Kind == "association_rule" && target.SourceKey != "" {
		if _, err := s.feedback.Record(ctx, userID, target.SourceKey, helpful); err != nil {
			return apierr.Internal("feedback_record_failed", err)
		}
	}
	s.log.Info("insight feedback recorded",
		"user_id", userID.String(), "insight_id", insightID, "helpful", helpful)
	return nil
}

func (s *insightService) Dismiss(ctx context.Context, insightID string) error {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return apierr.Unauthorized("unauthenticated", fmt.Errorf("no authenticated user"))
	}
	if insightID == "" {
		return apierr.BadRequest("insight_id_required", fmt.Errorf("insight id is empty"))
	}
	_, doc, err := s.locate(ctx, userID, insightID)
	if err != nil {
		return err
	}

	active := make([]types.Insight, 0, len(doc.Active))
	for _, in := range doc.Active {
		if in.ID == insightID {
			in.Dismissed = true
			doc.History = upsertHistory(doc.History, in)
			continue
		}
		active = append(active, in)
	}
	doc.Active = active
	for i := range doc.History {
		if doc.History[i].ID == insightID {
			doc.History[i].Dismissed = true
		}
	}
	if err := s.docs.Upsert(ctx, nil, doc); err != nil {
		return apierr.Internal("insight_dismiss_failed", err)
	}
	return nil
}

// locate finds an insight by id across the user's category docs, searching
// active lists first, then history.
func (s *insightService) locate(ctx context.Context, userID uuid.UUID, insightID string) (*types.Insight, *types.InsightDoc, error) {
	docs, err := s.docs.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, nil, apierr.Internal("insight_lookup_failed", err)
	}
	for _, doc := range docs {
		for i := range doc.Active {
			if doc.Active[i].ID == insightID {
				return &doc.Active[i], doc, nil
			}
		}
	}
	for _, doc := range docs {
		for i := range doc.History {
			if doc.History[i].ID == insightID {
				return &doc.History[i], doc, nil
			}
		}
	}
	return nil, nil, apierr.NotFound("insight_not_found", fmt.Errorf("insight %s not found", insightID))
}

func upsertHistory(history []types.Insight, in types.Insight) []types.Insight {
	for i := range history {
		if history[i].ID == in.ID {
			history[i] = in
			return history
		}
	}
	return append(history, in)
}
