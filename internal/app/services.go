package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/modules/insight"
	"github.com/yungbote/fathom-backend/internal/modules/insight/baseline"
	"github.com/yungbote/fathom-backend/internal/modules/insight/lifestate"
	"github.com/yungbote/fathom-backend/internal/modules/insight/patterns"
	"github.com/yungbote/fathom-backend/internal/modules/insight/rules"
	"github.com/yungbote/fathom-backend/internal/modules/insight/synthesis"
	"github.com/yungbote/fathom-backend/internal/modules/insight/threads"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/services"
)

type Services struct {
	Auth          services.AuthService
	Entry         services.EntryService
	Biometric     services.BiometricService
	Insight       services.InsightService
	Engine        *insight.Engine
	RefreshWorker *services.RefreshWorker
}

func wireServices(db *gorm.DB, log *logger.Logger, reposet Repos, clients Clients) (Services, error) {
	log.Info("wiring services")

	auth, err := services.NewAuthService(db, log, reposet.User, reposet.UserToken)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	patternDetector, err := patterns.NewDetector(log)
	if err != nil {
		return Services{}, fmt.Errorf("init pattern detector: %w", err)
	}
	stateDetector, err := lifestate.NewDetector(log)
	if err != nil {
		return Services{}, fmt.Errorf("init life-state detector: %w", err)
	}
	baselineMgr := baseline.NewManager(reposet.BaselineDoc, log)
	stateMgr := lifestate.NewManager(reposet.LifeStateDoc, log)
	threadMgr := threads.NewManager(db, reposet.Thread, log)
	feedbackMgr := rules.NewFeedbackManager(reposet.RuleFeedback, log)

	var synth synthesis.Port
	if clients.OpenAI != nil {
		synth = synthesis.NewNarrator(clients.OpenAI, log)
	}

	engine, err := insight.NewEngine(insight.Deps{
		Log:           log,
		Store:         clients.Store,
		Entries:       reposet.Entry,
		Biometrics:    reposet.BiometricDay,
		InsightDocs:   reposet.InsightDoc,
		Interventions: reposet.Intervention,
		Settings:      reposet.UserSettings,
		Patterns:      patternDetector,
		Baselines:     baselineMgr,
		States:        stateDetector,
		StateDocs:     stateMgr,
		Threads:       threadMgr,
		Feedback:      feedbackMgr,
		Synth:         synth,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init insight engine: %w", err)
	}

	tracker := services.NewThreadTracker(threadMgr, clients.OpenAI, log)

	return Services{
		Auth:          auth,
		Entry:         services.NewEntryService(db, log, reposet.Entry, engine, tracker),
		Biometric:     services.NewBiometricService(db, log, reposet.BiometricDay),
		Insight:       services.NewInsightService(db, log, reposet.InsightDoc, engine, feedbackMgr),
		Engine:        engine,
		RefreshWorker: services.NewRefreshWorker(log, reposet.InsightDoc, engine),
	}, nil
}
