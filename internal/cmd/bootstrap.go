package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/botguard/botguard/internal/config"
	"github.com/botguard/botguard/internal/core/idempotency"
	"github.com/botguard/botguard/internal/core/state"
	"github.com/botguard/botguard/internal/core/store"
	"github.com/botguard/botguard/internal/observability"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// corruptWarn surfaces a degraded load-or-default recovery so silent
// state resets stay observable in the logs.
func corruptWarn(path string, err error) {
	if observability.CLILogger != nil {
		observability.CLILogger.Warn("State file is corrupt, continuing with empty state",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

func openIdempotencyStore(cfg *config.Config) *idempotency.Store {
	s := idempotency.NewStore(cfg.State.IdempotencyPath)
	s.OnCorrupt = corruptWarn
	return s
}

func openSeenList(cfg *config.Config) *state.SeenList {
	s := state.NewSeenList(cfg.State.SeenPath)
	s.OnCorrupt = corruptWarn
	return s
}

func openArchive(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Archive)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
