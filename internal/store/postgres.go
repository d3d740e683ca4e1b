// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

// Package store opens the PostgreSQL pool and manages the schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultConnectRetries is used when Options.ConnectRetries is zero.
const DefaultConnectRetries = 5

// Options control how Open connects.
type Options struct {
	// ConnectRetries is how many times a failed connect or ping is retried.
	// Negative disables retries.
	ConnectRetries int

	// RetryBase is the first backoff interval; it doubles per attempt.
	RetryBase time.Duration

	Logger *slog.Logger
}

// Open creates a pgx pool for databaseURL and pings it, retrying with
// exponential backoff while the database comes up.
func Open(ctx context.Context, databaseURL string, opts Options) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	retries := opts.ConnectRetries
	switch {
	case retries == 0:
		retries = DefaultConnectRetries
	case retries < 0:
		retries = 0
	}
	base := opts.RetryBase
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var pool *pgxpool.Pool
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewExponential(base)) //nolint:gosec // retries >= 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			logger.WarnContext(ctx, "database connect failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			logger.WarnContext(ctx, "database ping failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "connect to database").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
