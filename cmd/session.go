package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/watchmonkey/stocktags/internal/config"
	"github.com/watchmonkey/stocktags/internal/search"
	"github.com/watchmonkey/stocktags/internal/search/index"
)

// session is one loaded snapshot ready for queries.
type session struct {
	cfg    *config.Config
	snap   *index.Snapshot
	engine *search.Engine
}

// openSession loads the configured snapshot into a fresh engine.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.SnapshotPath == "" {
		return nil, errors.New("no snapshot configured\n  Pass --snapshot <file> or set snapshot_path in the config.")
	}
	if _, err := os.Stat(cfg.SnapshotPath); err != nil {
		return nil, fmt.Errorf("snapshot not found: %s\n  Pass --snapshot <file> or set snapshot_path in the config.", cfg.SnapshotPath)
	}

	snap, err := index.LoadSnapshot(cfg.SnapshotPath)
	if err != nil {
		return nil, err
	}
	store := index.NewStore(index.WithLogger(slog.Default()))
	engine := search.NewEngine(store)
	if err := engine.SetStockData(ctx, snap.Stocks); err != nil {
		return nil, err
	}
	return &session{cfg: cfg, snap: snap, engine: engine}, nil
}

// perPage returns flag when set, otherwise the configured default.
func perPage(flag, configured int) int {
	if flag > 0 {
		return flag
	}
	return configured
}
