// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viixet/authn/pkg/errutil"
)

func TestConfigDir_EnvVar(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	got, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/custom/config/authn", got)
}

func TestConfigDir_Default(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/testuser")

	got, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/testuser/.config/authn", got)
}

func TestConfigDir_NoHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "")

	_, err := ConfigDir()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "XDG_NO_HOME")
}

func TestDefaultConfigFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	got, err := DefaultConfigFile()
	require.NoError(t, err)
	assert.Empty(t, got, "missing file is not an error")

	dir := filepath.Join(base, "authn")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("log:\n  level: debug\n"), 0o600))

	got, err = DefaultConfigFile()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), got)
}
