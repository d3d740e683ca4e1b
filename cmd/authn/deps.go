// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/viixet/authn/internal/auth"
	"github.com/viixet/authn/internal/auth/memory"
	"github.com/viixet/authn/internal/auth/postgres"
	"github.com/viixet/authn/internal/config"
	"github.com/viixet/authn/internal/observability"
	"github.com/viixet/authn/internal/store"
)

// Deps contains injectable dependencies for the CLI.
// All fields with nil values will use their default implementations.
type Deps struct {
	// BackendFactory opens the credential store named by cfg.
	// Default: openBackend
	BackendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

	// MigratorFactory opens a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates the metrics/health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer

	// MetricsRegistry supplies the registry auth operation metrics are
	// recorded in for a service-backed command.
	// Default: prometheus.NewRegistry
	MetricsRegistry func() *prometheus.Registry
}

// Backend is an opened credential store.
type Backend struct {
	Store auth.Store

	// Pinger answers readiness probes; nil means always ready.
	Pinger observability.Pinger

	// Close releases the store.
	Close func()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Pending() ([]uint, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.BackendFactory == nil {
		out.BackendFactory = openBackend
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	if out.MetricsRegistry == nil {
		out.MetricsRegistry = prometheus.NewRegistry
	}
	return &out
}

// openBackend connects the store selected by database.store.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Database.Store {
	case config.StoreMemory:
		logger.WarnContext(ctx, "using in-memory credential store; data is lost on exit")
		return &Backend{Store: memory.New().AuthStore(), Close: func() {}}, nil
	case config.StorePostgres:
		pool, err := store.Open(ctx, cfg.Database.URL, store.Options{
			ConnectRetries: cfg.Database.ConnectRetries,
			Logger:         logger,
		})
		if err != nil {
			return nil, oops.With("operation", "open credential store").Wrap(err)
		}
		logger.InfoContext(ctx, "connected to database")
		return &Backend{Store: postgres.NewStore(pool), Pinger: pool, Close: pool.Close}, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("store", cfg.Database.Store).
			Errorf("unknown credential store %q", cfg.Database.Store)
	}
}
