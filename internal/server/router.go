package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/fathom-backend/internal/handlers"
	"github.com/yungbote/fathom-backend/internal/middleware"
	"github.com/yungbote/fathom-backend/internal/platform/envutil"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log              *logger.Logger
	AuthMiddleware   *middleware.AuthMiddleware
	AuthHandler      *handlers.AuthHandler
	EntryHandler     *handlers.EntryHandler
	BiometricHandler *handlers.BiometricHandler
	InsightHandler   *handlers.InsightHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("fathom"))
	router.Use(middleware.RequestTrace(cfg.Log))

	origins := strings.Split(envutil.Str("CORS_ORIGINS", "http://localhost:3000,http://localhost:5174"), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthz", handlers.HealthCheck)
	auth := router.Group("/api/auth")
	{
		auth.POST("/register", cfg.AuthHandler.Register)
		auth.POST("/login", cfg.AuthHandler.Login)
		auth.POST("/refresh", cfg.AuthHandler.Refresh)
	}

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		api.POST("/auth/logout", cfg.AuthHandler.Logout)

		api.POST("/entries", cfg.EntryHandler.Create)
		api.GET("/entries", cfg.EntryHandler.List)
		api.PATCH("/entries/:id", cfg.EntryHandler.Revise)

		api.PUT("/biometrics/days", cfg.BiometricHandler.UpsertDays)
		api.GET("/biometrics/days", cfg.BiometricHandler.ListRange)

		api.POST("/insights/generate", cfg.InsightHandler.Generate)
		api.GET("/insights", cfg.InsightHandler.Cached)
		api.POST("/insights/reassess", cfg.InsightHandler.Reassess)
		api.POST("/insights/:id/feedback", cfg.InsightHandler.Feedback)
		api.POST("/insights/:id/dismiss", cfg.InsightHandler.Dismiss)
	}

	return router
}
