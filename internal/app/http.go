package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/fathom-backend/internal/handlers"
	"github.com/yungbote/fathom-backend/internal/middleware"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/server"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

type Handlers struct {
	Auth      *handlers.AuthHandler
	Entry     *handlers.EntryHandler
	Biometric *handlers.BiometricHandler
	Insight   *handlers.InsightHandler
}

func wireMiddleware(log *logger.Logger, serviceset Services) Middleware {
	log.Info("wiring middleware")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, serviceset.Auth),
	}
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("wiring handlers")
	return Handlers{
		Auth:      handlers.NewAuthHandler(serviceset.Auth),
		Entry:     handlers.NewEntryHandler(serviceset.Entry),
		Biometric: handlers.NewBiometricHandler(serviceset.Biometric),
		Insight:   handlers.NewInsightHandler(serviceset.Insight),
	}
}

func wireRouter(log *logger.Logger, handlerset Handlers, middlewareset Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		Log:              log,
		AuthMiddleware:   middlewareset.Auth,
		AuthHandler:      handlerset.Auth,
		EntryHandler:     handlerset.Entry,
		BiometricHandler: handlerset.Biometric,
		InsightHandler:   handlerset.Insight,
	})
}
