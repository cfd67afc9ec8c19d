// Package database opens the PostgreSQL pool that backs the analysis store
// and ties it to the service lifecycle.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/rancoqc/pkg/lifecycle"
)

// Hook is the lifecycle name the database registers under. Startup work
// that needs the store runs after it.
const Hook = "database"

const (
	startupAttempts = 5
	startupBackoff  = 500 * time.Millisecond
)

// DB is the shared connection pool. The pool is usable before Start; Start
// only confirms that the server answers.
type DB struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
	reachable   atomic.Bool
}

// New validates the DSN and sizes the pool. No connection is made until the
// first query or Ping.
func New(cfg *Config, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &DB{
		conn:        conn,
		logger:      logger.With("system", "database"),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Ping checks the server within the connection timeout. A failure wraps
// ErrNotReady around the driver error.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.connTimeout)
	defer cancel()

	err := d.conn.PingContext(ctx)
	d.reachable.Store(err == nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return nil
}

// Ready reports the outcome of the most recent Ping.
func (d *DB) Ready() bool {
	return d.reachable.Load()
}

// Start pings with backoff at startup, since the station backend often
// boots alongside its database, and closes the pool on shutdown.
func (d *DB) Start(lc *lifecycle.Coordinator) error {
	lc.Track(Hook, d)

	lc.OnStartup(Hook, func(ctx context.Context) error {
		if err := d.waitReachable(ctx); err != nil {
			return err
		}
		d.logger.Info("database connection established")
		return nil
	})

	lc.OnShutdown(Hook, func(context.Context) error {
		d.logger.Info("closing database connection")
		return d.conn.Close()
	})

	return nil
}

func (d *DB) waitReachable(ctx context.Context) error {
	delay := startupBackoff
	var err error

	for attempt := 1; attempt <= startupAttempts; attempt++ {
		if err = d.Ping(ctx); err == nil {
			return nil
		}
		d.logger.Warn("database not reachable", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return err
}
