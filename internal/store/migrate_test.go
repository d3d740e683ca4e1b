// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package store

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viixet/authn/pkg/errutil"
)

// fakeMigrate implements migrateIface with canned results.
type fakeMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	version        uint
	dirty          bool
	versionErr     error
	forceErr       error
	closeSourceErr error
	closeDBErr     error
}

func (m *fakeMigrate) Up() error                    { return m.upErr }
func (m *fakeMigrate) Down() error                  { return m.downErr }
func (m *fakeMigrate) Steps(int) error              { return m.stepsErr }
func (m *fakeMigrate) Version() (uint, bool, error) { return m.version, m.dirty, m.versionErr }
func (m *fakeMigrate) Force(int) error              { return m.forceErr }
func (m *fakeMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDBErr }

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("badscheme://localhost:5432/authn")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/authn":   "pgx5://u:p@db:5432/authn",
		"postgresql://u:p@db:5432/authn": "pgx5://u:p@db:5432/authn",
		"pgx5://db/authn":                "pgx5://db/authn",
	}
	for in, want := range tests {
		assert.Equal(t, want, migrateURL(in), in)
	}
}

func TestMigrator_NoChangeIsSuccess(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{
		upErr:    migrate.ErrNoChange,
		downErr:  migrate.ErrNoChange,
		stepsErr: migrate.ErrNoChange,
	}}
	require.NoError(t, m.Up())
	require.NoError(t, m.Down())
	require.NoError(t, m.Steps(0))
}

func TestMigrator_ErrorCodes(t *testing.T) {
	boom := errors.New("database locked")
	tests := []struct {
		name string
		call func(*Migrator) error
		mock *fakeMigrate
		code string
	}{
		{"up", (*Migrator).Up, &fakeMigrate{upErr: boom}, "MIGRATION_UP_FAILED"},
		{"down", (*Migrator).Down, &fakeMigrate{downErr: boom}, "MIGRATION_DOWN_FAILED"},
		{"steps", func(m *Migrator) error { return m.Steps(2) }, &fakeMigrate{stepsErr: boom}, "MIGRATION_STEPS_FAILED"},
		{"force", func(m *Migrator) error { return m.Force(1) }, &fakeMigrate{forceErr: boom}, "MIGRATION_FORCE_FAILED"},
		{"negative force", func(m *Migrator) error { return m.Force(-1) }, &fakeMigrate{}, "INVALID_VERSION"},
		{"version", func(m *Migrator) error { _, _, err := m.Version(); return err }, &fakeMigrate{versionErr: boom}, "MIGRATION_VERSION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(&Migrator{m: tt.mock})
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestMigrator_Version(t *testing.T) {
	version, dirty, err := (&Migrator{m: &fakeMigrate{version: 1, dirty: true}}).Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.True(t, dirty)

	version, dirty, err = (&Migrator{m: &fakeMigrate{versionErr: migrate.ErrNilVersion}}).Version()
	require.NoError(t, err, "an empty database is version 0")
	assert.Zero(t, version)
	assert.False(t, dirty)
}

func TestMigrator_Close(t *testing.T) {
	tests := []struct {
		name      string
		mock      *fakeMigrate
		component string
	}{
		{"source", &fakeMigrate{closeSourceErr: errors.New("source")}, "source"},
		{"database", &fakeMigrate{closeDBErr: errors.New("db")}, "database"},
		{"both", &fakeMigrate{closeSourceErr: errors.New("source"), closeDBErr: errors.New("db")}, "both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Migrator{m: tt.mock}).Close()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
			errutil.AssertErrorContext(t, err, "component", tt.component)
		})
	}

	require.NoError(t, (&Migrator{m: &fakeMigrate{}}).Close())
}

func TestMigrator_Pending(t *testing.T) {
	pending, err := (&Migrator{m: &fakeMigrate{versionErr: migrate.ErrNilVersion}}).Pending()
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, pending)

	pending, err = (&Migrator{m: &fakeMigrate{version: 1}}).Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = (&Migrator{m: &fakeMigrate{versionErr: errors.New("connection lost")}}).Pending()
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "operation", "list pending migrations")
}

func TestMigrationName(t *testing.T) {
	name, err := MigrationName(1)
	require.NoError(t, err)
	assert.Equal(t, "000001_initial", name)

	name, err = MigrationName(999)
	require.NoError(t, err)
	assert.Empty(t, name)
}
