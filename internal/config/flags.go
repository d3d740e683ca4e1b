// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags adds one flag per configuration key to fs. Flag names are
// the dotted koanf keys so Load can map them without translation.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("database.store", d.Database.Store, "credential store backend (postgres or memory)")
	fs.String("database.url", "", "PostgreSQL connection URL (default: $"+DatabaseURLEnv+")")
	fs.Int("database.connect_retries", d.Database.ConnectRetries, "connect attempts retried before giving up")
	fs.Duration("session.ttl", d.Session.TTL, "session lifetime after last modification")
	fs.String("hasher.algorithm", d.Hasher.Algorithm, "password hash algorithm (bcrypt or argon2id)")
	fs.Int("hasher.cost", d.Hasher.Cost, "bcrypt cost")
	fs.String("ids.format", d.IDs.Format, "identifier format (ulid or uuid)")
	fs.Bool("identity.reuse_deleted_handles", d.Identity.ReuseDeletedHandles,
		"allow registering usernames and emails held only by deleted users")
	fs.String("log.format", d.Log.Format, "log format (json or text)")
	fs.String("log.level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("metrics.addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("metrics.textfile", d.Metrics.Textfile, "write auth metrics to this file after each command (textfile collector)")
}
