package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/envutil"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/types"
)

// Service owns the gorm handle. Postgres is the production driver; sqlite
// (DB_DRIVER=sqlite) backs local runs and repo tests, so models avoid
// postgres-only column defaults.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewService(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService")

	driver := strings.ToLower(envutil.Str("DB_DRIVER", "postgres"))
	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case "sqlite":
		path := envutil.Str("SQLITE_PATH", "fathom.db")
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
		})
	default:
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=%s",
			envutil.Str("POSTGRES_USER", "postgres"),
			envutil.Str("POSTGRES_PASSWORD", ""),
			envutil.Str("POSTGRES_HOST", "localhost"),
			envutil.Str("POSTGRES_PORT", "5432"),
			envutil.Str("POSTGRES_NAME", "fathom"),
			envutil.Str("POSTGRES_SSLMODE", "disable"),
		)
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
		})
	}
	if err != nil {
		serviceLog.Error("failed to connect to database", "driver", driver, "error", err)
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(envutil.Int("DB_MAX_OPEN_CONNS", 20))
		sqlDB.SetMaxIdleConns(envutil.Int("DB_MAX_IDLE_CONNS", 5))
		sqlDB.SetConnMaxLifetime(envutil.Dur("DB_CONN_MAX_LIFETIME", 30*time.Minute))
	}

	serviceLog.Info("database connected", "driver", driver)
	return &Service{db: db, log: serviceLog}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("auto migrating tables")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Entry{},
		&types.BiometricDay{},
		&types.Thread{},
		&types.BaselineDoc{},
		&types.LifeStateDoc{},
		&types.InsightDoc{},
		&types.RuleFeedback{},
		&types.Intervention{},
		&types.UserSettings{},
	)
	if err != nil {
		s.log.Error("auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *Service) DB() *gorm.DB {
	return s.db
}
