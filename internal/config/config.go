// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

// Package config loads authn configuration from defaults, an optional YAML
// file, command-line flags and the environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/viixet/authn/internal/auth"
	"github.com/viixet/authn/internal/store"
)

// DatabaseURLEnv is consulted when no database URL is configured.
const DatabaseURLEnv = "DATABASE_URL"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the complete authn configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Hasher   HasherConfig   `koanf:"hasher"`
	IDs      IDsConfig      `koanf:"ids"`
	Identity IdentityConfig `koanf:"identity"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// DatabaseConfig selects and configures the credential store.
type DatabaseConfig struct {
	Store          string `koanf:"store"`
	URL            string `koanf:"url"`
	ConnectRetries int    `koanf:"connect_retries"`
}

// SessionConfig controls session lifetime.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// HasherConfig selects the password and code hash algorithm.
type HasherConfig struct {
	Algorithm string `koanf:"algorithm"`
	Cost      int    `koanf:"cost"`
}

// IDsConfig selects the identifier format.
type IDsConfig struct {
	Format string `koanf:"format"`
}

// IdentityConfig holds registration policy.
type IdentityConfig struct {
	ReuseDeletedHandles bool `koanf:"reuse_deleted_handles"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures metrics exposure. An empty Addr disables the
// observability endpoint; a non-empty Textfile makes one-shot commands write
// their auth metrics there in Prometheus text format.
type MetricsConfig struct {
	Addr     string `koanf:"addr"`
	Textfile string `koanf:"textfile"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Store:          StorePostgres,
			ConnectRetries: store.DefaultConnectRetries,
		},
		Session:  SessionConfig{TTL: auth.DefaultSessionTTL},
		Hasher:   HasherConfig{Algorithm: auth.AlgorithmBcrypt, Cost: auth.DefaultBcryptCost},
		IDs:      IDsConfig{Format: auth.IDFormatULID},
		Identity: IdentityConfig{ReuseDeletedHandles: false},
		Log:      LogConfig{Format: "json", Level: "info"},
		Metrics:  MetricsConfig{Addr: "127.0.0.1:9100"},
	}
}

func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"database.store":                 d.Database.Store,
		"database.url":                   d.Database.URL,
		"database.connect_retries":       d.Database.ConnectRetries,
		"session.ttl":                    d.Session.TTL.String(),
		"hasher.algorithm":               d.Hasher.Algorithm,
		"hasher.cost":                    d.Hasher.Cost,
		"ids.format":                     d.IDs.Format,
		"identity.reuse_deleted_handles": d.Identity.ReuseDeletedHandles,
		"log.format":                     d.Log.Format,
		"log.level":                      d.Log.Level,
		"metrics.addr":                   d.Metrics.Addr,
		"metrics.textfile":               d.Metrics.Textfile,
	}
}

// Load builds a Config. Layers, lowest precedence first: defaults, the YAML
// file at path (skipped when empty), flags in fs that were explicitly set,
// and finally DATABASE_URL when database.url is still empty.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").
				With("path", path).
				Wrapf(err, "failed to load config file")
		}
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, changedFlags(fs)), nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "failed to load flags")
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "failed to decode config")
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv(DatabaseURLEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// changedFlags maps a flag such as --session.ttl to its koanf key. Unchanged
// flags are dropped so they never mask file values.
func changedFlags(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		return f.Name, posflag.FlagVal(fs, f)
	}
}

// Validate checks enum values and ranges.
func (c *Config) Validate() error {
	switch c.Database.Store {
	case StorePostgres:
		if c.Database.URL == "" {
			return invalid("database.url", c.Database.URL,
				"database.url or %s is required for the postgres store", DatabaseURLEnv)
		}
	case StoreMemory:
	default:
		return invalid("database.store", c.Database.Store, "must be 'postgres' or 'memory'")
	}

	if c.Session.TTL <= 0 {
		return invalid("session.ttl", c.Session.TTL, "must be positive")
	}

	switch c.Hasher.Algorithm {
	case auth.AlgorithmBcrypt:
		if c.Hasher.Cost < bcrypt.MinCost || c.Hasher.Cost > bcrypt.MaxCost {
			return invalid("hasher.cost", c.Hasher.Cost,
				"must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
	case auth.AlgorithmArgon2id:
	default:
		return invalid("hasher.algorithm", c.Hasher.Algorithm, "must be 'bcrypt' or 'argon2id'")
	}

	switch c.IDs.Format {
	case auth.IDFormatULID, auth.IDFormatUUID:
	default:
		return invalid("ids.format", c.IDs.Format, "must be 'ulid' or 'uuid'")
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", c.Log.Format, "must be 'json' or 'text'")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", c.Log.Level, "must be one of debug, info, warn, error")
	}

	return nil
}

func invalid(key string, value any, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").
		With("key", key).
		With("value", value).
		Errorf(key+" "+format, args...)
}
