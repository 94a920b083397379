// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

// Package store provides database connectivity and schema management.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// connectBackoff is the initial backoff for connection pings. Doubles on
// every attempt up to maxConnectRetries.
const connectBackoff = 500 * time.Millisecond

// maxConnectRetries bounds startup pings before giving up. Covers the usual
// window where the database container is still coming up.
const maxConnectRetries = 6

// Connect opens a pgx connection pool and verifies it with retried pings.
// The caller owns the returned pool and must Close it.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.In("store").Code("DATABASE_URL_INVALID").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.In("store").Code("POOL_CREATE_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(maxConnectRetries, retry.NewExponential(connectBackoff))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			slog.Debug("database ping failed, retrying",
				"attempt", attempt,
				"error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.In("store").Code("DATABASE_UNREACHABLE").With("attempts", attempt).Wrap(err)
	}

	return pool, nil
}
