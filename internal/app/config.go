package app

import (
	"time"

	"github.com/yungbote/fathom-backend/internal/platform/envutil"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
)

type Config struct {
	Addr           string
	LogMode        string
	Environment    string
	Version        string
	AccessTokenTTL time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Addr:           envutil.Str("HTTP_ADDR", ":8080"),
		LogMode:        envutil.Str("LOG_MODE", "development"),
		Environment:    envutil.Str("ENVIRONMENT", "development"),
		Version:        envutil.Str("SERVICE_VERSION", "dev"),
		AccessTokenTTL: envutil.Dur("JWT_ACCESS_TTL", 15*time.Minute),
	}
	log.Info("config loaded", "addr", cfg.Addr, "environment", cfg.Environment)
	return cfg
}
