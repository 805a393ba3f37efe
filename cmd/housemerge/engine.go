package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/housemerge/internal/lock"
	"github.com/mmynk/housemerge/internal/merge"
	"github.com/mmynk/housemerge/internal/storage/sqlite"
)

// openEngine opens the store and builds a merge engine from cfg. The returned
// function releases the store and any redis connection.
func openEngine(ctx context.Context, reg prometheus.Registerer) (*merge.Engine, func(), error) {
	store, err := sqlite.New(cfg.DB.Path, sqlite.WithTxTimeout(cfg.Merge.TxTimeout))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	slog.Info("Storage initialized", "database", cfg.DB.Path)

	closers := []func() error{store.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				slog.Warn("Close failed", "error", err)
			}
		}
	}

	opts := []merge.Option{merge.WithLogger(slog.Default())}
	if reg != nil {
		opts = append(opts, merge.WithMetrics(merge.NewMetrics(reg)))
	}
	if cfg.Redis.URL != "" {
		client, err := lock.DialRedis(ctx, cfg.Redis.URL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		opts = append(opts, merge.WithLocker(lock.NewRedis(client, cfg.Redis.LockTTL)))
		slog.Info("Using redis group lock", "lock_ttl", cfg.Redis.LockTTL)
	}

	engine, err := merge.NewEngine(store, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return engine, cleanup, nil
}
