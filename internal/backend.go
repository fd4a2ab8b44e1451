package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/orgboard/internal/index"
	"github.com/starford/orgboard/internal/storage"
)

// backend is the persistence stack selected by storage.backend.
type backend struct {
	// gateway is the retrying gateway the session uses.
	gateway storage.Gateway
	// file is set for the file backend so the snapshot can be watched.
	file *storage.FileGateway
	// index is set for the sqlite backend.
	index *index.DB

	closers []func() error
}

// openBackend connects to the configured snapshot store.
func openBackend(ctx context.Context, cfg *Config, logger *slog.Logger) (*backend, error) {
	b := &backend{}
	var raw storage.Gateway

	switch cfg.Storage.Backend {
	case BackendFile, "":
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		b.file = storage.NewFileGateway(fs, cfg.Storage.File, logger)
		raw = b.file

	case BackendMemory:
		raw = storage.NewMemoryGateway()

	case BackendSQLite:
		db, err := index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		b.index = db
		b.closers = append(b.closers, db.Close)
		raw = db

	case BackendRedis:
		rg, err := storage.NewRedisGateway(ctx, cfg.Redis.URL, cfg.Redis.Key)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		b.closers = append(b.closers, rg.Close)
		raw = rg

	case BackendPostgres:
		pg, err := storage.NewPostgresGateway(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		b.closers = append(b.closers, pg.Close)
		raw = pg

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	r := cfg.Storage.Retry
	b.gateway = storage.NewRetryGateway(raw, storage.RetryPolicy{
		MaxAttempts:     r.MaxAttempts,
		InitialInterval: r.InitialInterval,
		MaxInterval:     r.MaxInterval,
	}, logger)

	logger.Info("storage backend ready", slog.String("backend", cfg.Storage.Backend))
	return b, nil
}

// Close releases connections held by the backend.
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}
