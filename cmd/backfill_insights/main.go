package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fathom-backend/internal/app"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

// Reassesses users after bulk imports or corrective-edit sweeps: baselines
// first, then thread baselines, then a full regeneration per user. Each
// stage persists on its own, so an interrupted run keeps its progress.
func main() {
	var users idList
	var limit int
	flag.Var(&users, "user", "user id to reassess (repeatable; default: all users with insight docs)")
	flag.IntVar(&limit, "limit", 100, "max users to process when no -user is given")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()
	log := application.Log.With("component", "backfill_insights")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ids, err := resolveUsers(ctx, application, users, limit)
	if err != nil {
		log.Error("resolving users failed", "error", err)
		os.Exit(1)
	}
	if len(ids) == 0 {
		log.Info("no users to reassess")
		return
	}

	done := 0
	for _, userID := range ids {
		if ctx.Err() != nil {
			log.Info("interrupted; completed stages stay persisted", "done", done, "total", len(ids))
			return
		}
		if err := application.Services.Engine.Reassess(ctx, userID); err != nil {
			log.Warn("reassessment failed", "user_id", userID.String(), "error", err)
			continue
		}
		done++
		log.Info("reassessed", "user_id", userID.String(), "done", done, "total", len(ids))
	}
	log.Info("backfill complete", "reassessed", done, "total", len(ids))
}

func resolveUsers(ctx context.Context, application *app.App, users idList, limit int) ([]uuid.UUID, error) {
	if len(users) > 0 {
		ids := make([]uuid.UUID, 0, len(users))
		for _, raw := range users {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("invalid user id %q: %w", raw, err)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	// Every user with at least one insight doc, regardless of freshness.
	return application.Repos.InsightDoc.ListExpiredUsers(ctx, nil, farFuture(), limit)
}

func farFuture() time.Time {
	return time.Now().UTC().AddDate(100, 0, 0)
}
