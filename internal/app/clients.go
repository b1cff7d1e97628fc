package app

import (
	"fmt"

	"github.com/yungbote/fathom-backend/internal/clients/openai"
	"github.com/yungbote/fathom-backend/internal/clients/redis"
	"github.com/yungbote/fathom-backend/internal/platform/envutil"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
)

type Clients struct {
	Store  redis.Store
	OpenAI openai.Client
}

// wireClients connects the external dependencies. Redis falls back to the
// in-process store when unconfigured; the model client stays nil without
// an API key and every consumer degrades to its local fallback.
func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("wiring clients")

	store, err := redis.NewStore(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis store: %w", err)
	}

	var ai openai.Client
	if envutil.Str("OPENAI_API_KEY", "") != "" {
		ai, err = openai.NewClient(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
	} else {
		log.Warn("OPENAI_API_KEY not set; synthesis and embeddings disabled")
	}

	return Clients{Store: store, OpenAI: ai}, nil
}
