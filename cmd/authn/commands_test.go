// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viixet/authn/internal/auth"
	"github.com/viixet/authn/internal/auth/memory"
	"github.com/viixet/authn/internal/config"
	"github.com/viixet/authn/pkg/errutil"
)

// login registers alice and opens a pending session for her.
func login(t *testing.T, deps *Deps) (userID, sessionID string) {
	t.Helper()
	r := execute(t, deps, "", "user", "register", "alice", "alice@example.com", "--password=correct horse")
	require.NoError(t, r.err, r.stderr)
	userID = r.field("user_id")
	require.NotEmpty(t, userID)

	r = execute(t, deps, "correct horse\n", "session", "login", "alice")
	require.NoError(t, r.err, r.stderr)
	assert.Equal(t, userID, r.field("user_id"))
	assert.Equal(t, "alice", r.field("username"))
	sessionID = r.field("session_id")
	require.NotEmpty(t, sessionID)
	return userID, sessionID
}

func TestUserRegister(t *testing.T) {
	deps := memoryDeps(t)

	r := execute(t, deps, "s3cret\n", "user", "register", "bob", "bob@example.com")
	require.NoError(t, r.err)
	assert.NotEmpty(t, r.field("user_id"))
	assert.NotContains(t, r.out+r.stderr, "s3cret")

	r = execute(t, deps, "", "user", "register", "bob", "other@example.com", "--password=x")
	require.ErrorIs(t, r.err, auth.ErrUserAlreadyExists)

	r = execute(t, deps, "", "user", "register", "carol", "carol@example.com")
	require.Error(t, r.err, "empty stdin and no flag")
	errutil.AssertErrorCode(t, r.err, "INPUT_REQUIRED")

	r = execute(t, deps, "", "user", "register", "only-username")
	require.Error(t, r.err)
}

func TestSession_LoginCheckLogout(t *testing.T) {
	deps := memoryDeps(t)
	userID, sessionID := login(t, deps)

	r := execute(t, deps, "", "session", "check", sessionID)
	require.NoError(t, r.err)
	assert.Equal(t, userID, r.field("user_id"))
	assert.Equal(t, "false", r.field("active"))

	r = execute(t, deps, "", "session", "logout", sessionID)
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Session terminated")

	r = execute(t, deps, "", "session", "check", sessionID)
	require.ErrorIs(t, r.err, auth.ErrSessionNotFound)

	r = execute(t, deps, "", "session", "logout", sessionID)
	require.ErrorIs(t, r.err, auth.ErrSessionNotFound)
}

func TestSession_LoginWrongPassword(t *testing.T) {
	deps := memoryDeps(t)
	login(t, deps)

	r := execute(t, deps, "", "session", "login", "alice", "--password=wrong")
	require.ErrorIs(t, r.err, auth.ErrCredentialsInvalid)

	r = execute(t, deps, "", "session", "login", "nobody", "--password=wrong")
	require.ErrorIs(t, r.err, auth.ErrUserNotFound)
}

func TestTwoFactor_IssueAndVerify(t *testing.T) {
	deps := memoryDeps(t)
	userID, sessionID := login(t, deps)

	r := execute(t, deps, "", "twofactor", "issue", userID, sessionID)
	require.NoError(t, r.err)
	tokenID, code := r.field("token_id"), r.field("code")
	require.NotEmpty(t, tokenID)
	require.Len(t, code, auth.TwoFactorDigits)

	r = execute(t, deps, "", "twofactor", "verify", userID, sessionID, tokenID, "12a456")
	require.Error(t, r.err)
	errutil.AssertErrorCode(t, r.err, "TOKEN_INVALID_CODE")

	r = execute(t, deps, "", "twofactor", "verify", userID, sessionID, tokenID, code)
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.out, "Session activated")

	r = execute(t, deps, "", "session", "check", sessionID)
	require.NoError(t, r.err)
	assert.Equal(t, "true", r.field("active"))

	r = execute(t, deps, "", "twofactor", "verify", userID, sessionID, tokenID, code)
	require.ErrorIs(t, r.err, auth.ErrTokenNotFound, "codes are single-use")
}

func TestEmailLogin_GeneratedSecret(t *testing.T) {
	deps := memoryDeps(t)
	userID, sessionID := login(t, deps)

	r := execute(t, deps, "", "emaillogin", "issue", userID, sessionID)
	require.NoError(t, r.err)
	secret := r.field("secret")
	assert.Len(t, secret, 64, "32 random bytes hex-encoded")

	r = execute(t, deps, "", "emaillogin", "verify", userID, sessionID, "not-the-secret")
	require.ErrorIs(t, r.err, auth.ErrTokenNotFound)

	r = execute(t, deps, "", "emaillogin", "verify", userID, sessionID, secret)
	require.NoError(t, r.err)

	r = execute(t, deps, "", "session", "check", sessionID)
	require.NoError(t, r.err)
	assert.Equal(t, "true", r.field("active"))
}

func TestEmailLogin_SecretStoredAsGiven(t *testing.T) {
	mem := memory.New()
	deps := &Deps{
		BackendFactory: func(context.Context, *config.Config, *slog.Logger) (*Backend, error) {
			return &Backend{Store: mem.AuthStore(), Close: func() {}}, nil
		},
	}
	userID, sessionID := login(t, deps)

	r := execute(t, deps, "", "emaillogin", "issue", userID, sessionID, "--secret=link-secret")
	require.NoError(t, r.err)

	tok, ok := mem.Token(context.Background(), r.field("token_id"))
	require.True(t, ok)
	assert.Equal(t, "link-secret", tok.Token)

	help := newEmailLoginCmd(&cli{}).Commands()[0].Long
	assert.Contains(t, help, "stored as given")
	assert.NotContains(t, help, "hash")
}

func TestPassword_IssueAndChange(t *testing.T) {
	deps := memoryDeps(t)
	userID, sessionID := login(t, deps)

	r := execute(t, deps, "", "password", "issue", userID, sessionID, "--secret=renew-me")
	require.NoError(t, r.err)
	assert.Equal(t, "renew-me", r.field("secret"))
	assert.NotEmpty(t, r.field("token_id"))

	r = execute(t, deps, "battery staple\n", "password", "change", userID, sessionID, "renew-me")
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.out, "Password changed")

	r = execute(t, deps, "", "session", "login", "alice", "--password=correct horse")
	require.ErrorIs(t, r.err, auth.ErrCredentialsInvalid)

	r = execute(t, deps, "", "session", "login", "alice", "--password=battery staple")
	require.NoError(t, r.err)

	r = execute(t, deps, "", "password", "change", userID, sessionID, "renew-me", "--new-password=again")
	require.ErrorIs(t, r.err, auth.ErrTokenNotFound, "renewal secrets are single-use")
}

func TestCodeRoundTrip(t *testing.T) {
	digits := []int{3, 1, 4, 1, 5, 9}
	assert.Equal(t, "314159", formatCode(digits))

	got, err := parseCode("314159")
	require.NoError(t, err)
	assert.Equal(t, digits, got)

	_, err = parseCode("31415x")
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "position", 5)
}
