// Package db holds the Postgres connection, schema migrations and the stores
// that back the pricing engine's rate tables and reference data.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wooyoungkug/photocafe-sub007/internal/logging"
)

// Connect opens a pool and pings it, retrying with exponential backoff until
// maxWait elapses. Postgres usually starts alongside the service, so the first
// attempts are expected to fail.
func Connect(ctx context.Context, databaseURL string, maxWait time.Duration) (*pgxpool.Pool, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.ConnConfig.Tracer = newQueryTracer()

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = maxWait
	retryPolicy.MaxInterval = 5 * time.Second

	logger := logging.FromContext(ctx, slog.Default())

	var pool *pgxpool.Pool
	err = backoff.RetryNotify(
		func() error {
			candidate, err := pgxpool.NewWithConfig(ctx, config)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("failed to create connection pool: %w", err))
			}
			if err := candidate.Ping(ctx); err != nil {
				candidate.Close()
				return fmt.Errorf("failed to ping database: %w", err)
			}
			pool = candidate
			return nil
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, wait time.Duration) {
			logger.Warn("database not ready, retrying", "error", err, "retry_in", wait)
		},
	)
	if err != nil {
		return nil, err
	}

	return pool, nil
}
