// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/viixet/authn/internal/auth"
	"github.com/viixet/authn/internal/config"
	"github.com/viixet/authn/internal/logging"
	"github.com/viixet/authn/internal/xdg"
)

const serviceName = "authn"

// app is the per-invocation runtime: configuration, logger and, once
// opened, the credential store, service and its metrics registry.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  *Backend
	svc      *auth.Service
	registry *prometheus.Registry
}

// loadApp reads configuration and sets up logging without touching storage.
// An explicit --config wins; otherwise the XDG config file is used if present.
func (c *cli) loadApp(cmd *cobra.Command) (*app, error) {
	var err error
	path := c.configFile
	if path == "" {
		if path, err = xdg.DefaultConfigFile(); err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrap(err)
		}
	}

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded CONFIG_INVALID
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger := logging.Setup(serviceName, cmd.Root().Version, cfg.Log.Format, level, cmd.ErrOrStderr())

	return &app{cfg: cfg, logger: logger}, nil
}

// openApp is loadApp plus an opened store and service. Callers must Close.
func (c *cli) openApp(cmd *cobra.Command, opts ...auth.Option) (*app, error) {
	a, err := c.loadApp(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()

	hasher, err := auth.NewPasswordHasher(a.cfg.Hasher.Algorithm, a.cfg.Hasher.Cost)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	ids, err := auth.NewIDGenerator(a.cfg.IDs.Format)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	backend, err := c.deps.BackendFactory(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to credential store").Wrap(err)
	}
	a.backend = backend
	a.registry = c.deps.MetricsRegistry()

	base := []auth.Option{
		auth.WithMetrics(auth.NewMetrics(a.registry)),
		auth.WithSessionTTL(a.cfg.Session.TTL),
		auth.WithIDGenerator(ids),
		auth.WithLogger(a.logger),
		auth.WithDeletedHandleReuse(a.cfg.Identity.ReuseDeletedHandles),
	}
	svc, err := auth.NewService(backend.Store, hasher, append(base, opts...)...)
	if err != nil {
		backend.Close()
		return nil, oops.With("operation", "create auth service").Wrap(err)
	}
	a.svc = svc
	return a, nil
}

// Close releases the store, if one was opened.
func (a *app) Close() {
	if a.backend != nil && a.backend.Close != nil {
		a.backend.Close()
	}
}

// writeMetrics dumps the registry to metrics.textfile, if configured.
func (a *app) writeMetrics(ctx context.Context) {
	path := a.cfg.Metrics.Textfile
	if path == "" || a.registry == nil {
		return
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		a.logger.WarnContext(ctx, "failed to write metrics textfile", "path", path, "error", err)
	}
}

// withService runs fn against a freshly opened service. The operation's
// metrics are written out even when fn fails.
func (c *cli) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *auth.Service) error) error {
	a, err := c.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.writeMetrics(cmd.Context())
	return fn(cmd.Context(), a.svc)
}

// readSecret returns value, or the first line of in when value is empty.
// what names the secret in error messages.
func readSecret(in io.Reader, value, what string) (string, error) {
	if value != "" {
		return value, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", oops.Code("INPUT_READ_FAILED").With("input", what).Wrap(err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", oops.Code("INPUT_REQUIRED").
			With("input", what).
			Errorf("%s is required (flag or first line of stdin)", what)
	}
	return line, nil
}

// printFields writes aligned "key: value" lines to the command's output.
func printFields(cmd *cobra.Command, kv ...string) {
	out := cmd.OutOrStdout()
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(out, "%s: %s\n", kv[i], kv[i+1]) //nolint:errcheck // terminal output
	}
}
