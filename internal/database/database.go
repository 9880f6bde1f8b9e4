// Package database provides the PostgreSQL connection pool shared by the
// registry and the search engine.
//
// The pool is the only shared mutable resource in the process. It is bounded:
// a request that cannot obtain a connection before its deadline fails with
// ErrUnavailable instead of queueing indefinitely.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corpusd/corpusd/internal/config"
)

var (
	// ErrUnavailable indicates the storage backend could not serve the request
	// in time (pool saturated, statement timed out, or backend unreachable).
	ErrUnavailable = errors.New("storage unavailable")
)

const (
	// DefaultQueryTimeout bounds individual statements issued through the pool.
	// Callers wrap their context with this before talking to the backend so a
	// saturated pool surfaces as ErrUnavailable rather than an indefinite wait.
	DefaultQueryTimeout = 10 * time.Second

	pingTimeout = 5 * time.Second
)

// NewPool creates a PostgreSQL connection pool.
// Pool is configured with sensible defaults for connection management.
// The returned cleanup function closes the pool.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}

	return pool, cleanup, nil
}

// Classify maps low-level pool/statement errors to the package sentinels.
// Timeouts while waiting on the bounded pool (or on a statement) become
// ErrUnavailable; everything else passes through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
