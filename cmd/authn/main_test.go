// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package main

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viixet/authn/internal/auth/memory"
	"github.com/viixet/authn/internal/config"
)

func TestMain(m *testing.M) {
	// Keep a developer's own config file out of the tests.
	dir, err := os.MkdirTemp("", "authn-cmd-test")
	if err != nil {
		panic(err)
	}
	_ = os.Setenv("XDG_CONFIG_HOME", dir)
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// memoryDeps shares one in-memory store across every command run with it.
func memoryDeps(t *testing.T) *Deps {
	t.Helper()
	mem := memory.New()
	return &Deps{
		BackendFactory: func(context.Context, *config.Config, *slog.Logger) (*Backend, error) {
			return &Backend{Store: mem.AuthStore(), Close: func() {}}, nil
		},
	}
}

type result struct {
	out    string
	stderr string
	err    error
}

// field returns the value printed as "key: value", or "".
func (r result) field(key string) string {
	sc := bufio.NewScanner(strings.NewReader(r.out))
	for sc.Scan() {
		if v, ok := strings.CutPrefix(sc.Text(), key+": "); ok {
			return v
		}
	}
	return ""
}

func execute(t *testing.T, deps *Deps, stdin string, args ...string) result {
	t.Helper()
	cmd := newRootCmdWithDeps(deps)
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	base := []string{"--database.store=memory", "--hasher.cost=4", "--log.level=error"}
	cmd.SetArgs(append(base, args...))
	err := cmd.ExecuteContext(context.Background())
	return result{out: out.String(), stderr: stderr.String(), err: err}
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"migrate", "user", "session", "twofactor", "emaillogin", "password", "serve"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlags(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{
		"config", "database.store", "database.url", "session.ttl", "hasher.algorithm",
		"hasher.cost", "ids.format", "identity.reuse_deleted_handles", "log.format",
		"log.level", "metrics.addr", "metrics.textfile",
	} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "test-version")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	r := execute(t, memoryDeps(t), "", "--ids.format=serial", "session", "check", "s1")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "ids.format")
}

func TestDeps_WithDefaults(t *testing.T) {
	d := (*Deps)(nil).withDefaults()
	assert.NotNil(t, d.BackendFactory)
	assert.NotNil(t, d.MigratorFactory)
	assert.NotNil(t, d.ObservabilityServerFactory)
	assert.NotNil(t, d.MetricsRegistry)

	custom := memoryDeps(t)
	got := custom.withDefaults()
	assert.NotNil(t, got.MigratorFactory)
	assert.NotSame(t, custom, got, "defaults are applied to a copy")
}

func TestOpenBackend_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Store = config.StoreMemory

	b, err := openBackend(context.Background(), &cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer b.Close()
	assert.NotNil(t, b.Store.Users)
	assert.Nil(t, b.Pinger)
}

func TestOpenBackend_UnknownStore(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Store = "sqlite"

	_, err := openBackend(context.Background(), &cfg, slog.New(slog.DiscardHandler))
	require.Error(t, err)
}

func TestReadSecret(t *testing.T) {
	got, err := readSecret(strings.NewReader("ignored\n"), "flag-value", "password")
	require.NoError(t, err)
	assert.Equal(t, "flag-value", got)

	got, err = readSecret(strings.NewReader("from stdin\r\nsecond line\n"), "", "password")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	got, err = readSecret(strings.NewReader("no newline"), "", "password")
	require.NoError(t, err)
	assert.Equal(t, "no newline", got)

	_, err = readSecret(strings.NewReader(""), "", "password")
	require.Error(t, err)
}

func TestLoadApp_UsesXDGConfigFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	dir := filepath.Join(base, "authn")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("ids:\n  format: serial\n"), 0o600))

	r := execute(t, memoryDeps(t), "", "session", "check", "s1")
	require.Error(t, r.err, "the XDG file is read when --config is absent")
	assert.Contains(t, r.err.Error(), "ids.format")

	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("ids:\n  format: uuid\n"), 0o600))
	r = execute(t, memoryDeps(t), "", "--config="+explicit, "user", "register", "dave", "dave@example.com", "--password=pw")
	require.NoError(t, r.err)
	assert.Len(t, r.field("user_id"), 36, "uuid ids come from the explicit file")
}
