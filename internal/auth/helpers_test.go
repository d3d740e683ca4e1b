// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/viixet/authn/internal/auth"
	"github.com/viixet/authn/internal/auth/memory"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// seqDigits replays a fixed digit sequence.
type seqDigits struct {
	digits []int
	next   int
}

func (s *seqDigits) Digit() (int, error) {
	d := s.digits[s.next%len(s.digits)]
	s.next++
	return d, nil
}

type fixture struct {
	svc    *auth.Service
	mem    *memory.Store
	clock  *testClock
	digits *seqDigits
	logs   *bytes.Buffer
}

func newFixture(t *testing.T, opts ...auth.Option) *fixture {
	t.Helper()
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	f := &fixture{
		mem:    memory.New(),
		clock:  &testClock{now: epoch},
		digits: &seqDigits{digits: []int{3, 1, 4, 1, 5, 9}},
		logs:   &bytes.Buffer{},
	}
	logger := slog.New(slog.NewJSONHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	base := []auth.Option{
		auth.WithClock(f.clock.Now),
		auth.WithDigitSource(f.digits),
		auth.WithLogger(logger),
	}
	f.svc, err = auth.NewService(f.mem.AuthStore(), hasher, append(base, opts...)...)
	require.NoError(t, err)
	return f
}

// registerAndLogin registers alice and opens a pending session for her.
func (f *fixture) registerAndLogin(t *testing.T) *auth.LoginResult {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "correct horse", "alice@example.com")
	require.NoError(t, err)
	res, err := f.svc.LoginUser(ctx, "alice", "correct horse")
	require.NoError(t, err)
	return res
}
