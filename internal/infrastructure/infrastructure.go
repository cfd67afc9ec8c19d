// Package infrastructure provides core service initialization for application startup.
// It assembles the shared dependencies (logging, database, storage, local cache,
// events, metrics) that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/JaimeStill/rancoqc/internal/config"
	"github.com/JaimeStill/rancoqc/pkg/database"
	"github.com/JaimeStill/rancoqc/pkg/events"
	"github.com/JaimeStill/rancoqc/pkg/lifecycle"
	"github.com/JaimeStill/rancoqc/pkg/metrics"
	"github.com/JaimeStill/rancoqc/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  *database.DB
	Storage   storage.System
	Cache     *badger.DB
	Events    events.Publisher
	Metrics   *metrics.Metrics
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
// The pending cache is opened here because badger holds a directory lock
// that must be acquired before the server accepts traffic.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := cfg.Server.Logger(os.Stderr)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	cache, err := OpenCache(&cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Cache:     cache,
		Events:    events.New(&cfg.Events, logger),
		Metrics:   metrics.New(),
	}, nil
}

// OpenCache opens the badger store backing the degraded-mode cache.
func OpenCache(cfg *config.CacheConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithLoggingLevel(badger.WARNING)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").
			WithInMemory(true).
			WithLoggingLevel(badger.WARNING)
	}
	return badger.Open(opts)
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Events.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("events start failed: %w", err)
	}

	i.Lifecycle.OnShutdown("cache", func(context.Context) error {
		i.Logger.Info("closing pending cache")
		return i.Cache.Close()
	})
	i.Lifecycle.Track("cache", cacheReadiness{i.Cache})
	return nil
}

type cacheReadiness struct {
	db *badger.DB
}

func (c cacheReadiness) Ready() bool {
	return !c.db.IsClosed()
}
