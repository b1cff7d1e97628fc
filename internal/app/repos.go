package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/repos"
)

type Repos struct {
	User         repos.UserRepo
	UserToken    repos.UserTokenRepo
	Entry        repos.EntryRepo
	BiometricDay repos.BiometricDayRepo
	Thread       repos.ThreadRepo
	BaselineDoc  repos.BaselineDocRepo
	LifeStateDoc repos.LifeStateDocRepo
	InsightDoc   repos.InsightDocRepo
	RuleFeedback repos.RuleFeedbackRepo
	Intervention repos.InterventionRepo
	UserSettings repos.UserSettingsRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("wiring repos")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		UserToken:    repos.NewUserTokenRepo(db, log),
		Entry:        repos.NewEntryRepo(db, log),
		BiometricDay: repos.NewBiometricDayRepo(db, log),
		Thread:       repos.NewThreadRepo(db, log),
		BaselineDoc:  repos.NewBaselineDocRepo(db, log),
		LifeStateDoc: repos.NewLifeStateDocRepo(db, log),
		InsightDoc:   repos.NewInsightDocRepo(db, log),
		RuleFeedback: repos.NewRuleFeedbackRepo(db, log),
		Intervention: repos.NewInterventionRepo(db, log),
		UserSettings: repos.NewUserSettingsRepo(db, log),
	}
}
