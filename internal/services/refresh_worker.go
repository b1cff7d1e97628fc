package services

import (
	"context"
	"time"

	"github.com/yungbote/fathom-backend/internal/modules/insight"
	"github.com/yungbote/fathom-backend/internal/platform/envutil"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/repos"
)

// RefreshWorker regenerates expired insight documents in the background so
// users see fresh insights without paying generation latency on read.
type RefreshWorker struct {
	log      *logger.Logger
	docs     repos.InsightDocRepo
	engine   *insight.Engine
	interval time.Duration
	batch    int
	enabled  bool
}

func NewRefreshWorker(baseLog *logger.Logger, docs repos.InsightDocRepo, engine *insight.Engine) *RefreshWorker {
	return &RefreshWorker{
		log:      baseLog.With("component", "InsightRefreshWorker"),
		docs:     docs,
		engine:   engine,
		interval: envutil.Dur("INSIGHT_REFRESH_INTERVAL", 6*time.Hour),
		batch:    envutil.Int("INSIGHT_REFRESH_BATCH", 25),
		enabled:  envutil.Bool("INSIGHT_REFRESH_ENABLED", true),
	}
}

func (w *RefreshWorker) Start(ctx context.Context) {
	if !w.enabled {
		w.log.Info("insight refresh worker disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		w.log.Info("insight refresh worker started", "interval", w.interval.String(), "batch", w.batch)
		for {
			select {
			case <-ctx.Done():
				w.log.Info("insight refresh worker stopped")
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()
}

func (w *RefreshWorker) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	userIDs, err := w.docs.ListExpiredUsers(ctx, nil, now, w.batch)
	if err != nil {
		w.log.Warn("expired-user scan failed", "error", err)
		return
	}
	if len(userIDs) == 0 {
		return
	}
	refreshed := 0
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.engine.Generate(ctx, userID); err != nil {
			w.log.Warn("background refresh failed", "user_id", userID.String(), "error", err)
			continue
		}
		refreshed++
	}
	w.log.Info("background refresh pass complete", "candidates", len(userIDs), "refreshed", refreshed)
}
