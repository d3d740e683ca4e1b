// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/viixet/authn/internal/observability"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics and health endpoints",
		Long: `Open the credential store and serve Prometheus metrics on /metrics
and health probes on /healthz/liveness and /healthz/readiness until
interrupted. Readiness fails while the database does not answer a ping.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runServe(cmd)
		},
	}
}

func (c *cli) runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := c.loadApp(cmd)
	if err != nil {
		return err
	}
	if a.cfg.Metrics.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("metrics.addr is required for serve")
	}

	backend, err := c.deps.BackendFactory(ctx, a.cfg, a.logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to credential store").Wrap(err)
	}
	a.backend = backend
	defer a.Close()

	var ready observability.ReadinessChecker
	if backend.Pinger != nil {
		ready = observability.PingReadiness(backend.Pinger, 0, a.logger)
	}
	srv := c.deps.ObservabilityServerFactory(a.cfg.Metrics.Addr, ready)

	errCh, err := srv.Start()
	if err != nil {
		return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(err)
	}
	a.logger.InfoContext(ctx, "serving", "addr", srv.Addr())
	cmd.Printf("Serving metrics and health on %s\n", srv.Addr())

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.InfoContext(ctx, "shutting down")
	case err, ok := <-errCh:
		if ok && err != nil {
			serveErr = oops.Code("SERVE_FAILED").With("operation", "serve observability").Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil && serveErr == nil {
		serveErr = oops.Code("SERVE_FAILED").With("operation", "stop observability server").Wrap(err)
	}
	return serveErr
}
