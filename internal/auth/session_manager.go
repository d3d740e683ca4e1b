// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import (
	"context"
	"errors"
	"time"
)

// SessionManager creates and transitions sessions.
type SessionManager struct {
	sessions SessionRepository
	ids      IDGenerator
	now      Clock
	ttl      time.Duration
}

// NewSessionManager creates a SessionManager. A non-positive ttl selects
// DefaultSessionTTL.
func NewSessionManager(sessions SessionRepository, ids IDGenerator, now Clock, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: sessions,
		ids:      ids,
		now:      now,
		ttl:      ttl,
	}
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// CreateSession stores a new session for userID and returns its ID.
// Sessions normally start pending (active=false).
func (m *SessionManager) CreateSession(ctx context.Context, userID string, active bool) (string, error) {
	now := m.now()
	session := &Session{
		ID:       m.ids.NewID(),
		UserID:   userID,
		Created:  now,
		Modified: now,
		Active:   active,
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, ErrNotPersisted) {
			return "", fail(CodeSessionCreationFailed, ErrSessionCreationFailed, "user_id", userID)
		}
		return "", StorageFailure("create session", err)
	}
	return session.ID, nil
}

// ActivateSession marks a live session active. Activating twice is a no-op
// state-wise; terminated sessions are never revived and report false.
func (m *SessionManager) ActivateSession(ctx context.Context, sessionID string) (bool, error) {
	ok, err := m.sessions.Activate(ctx, sessionID, m.now())
	if err != nil {
		return false, StorageFailure("activate session", err)
	}
	return ok, nil
}

// DeleteSession terminates a live session. The transition is irreversible.
func (m *SessionManager) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	ok, err := m.sessions.Delete(ctx, sessionID, m.now())
	if err != nil {
		return false, StorageFailure("delete session", err)
	}
	return ok, nil
}

// Validate loads the live session and its live owner, failing with
// ErrSessionNotFound or ErrSessionExpired. Expiry is evaluated here, on
// read; nothing sweeps sessions in the background.
func (m *SessionManager) Validate(ctx context.Context, sessionID string) (*SessionIdentity, error) {
	ident, err := m.sessions.GetIdentity(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fail(CodeSessionNotFound, ErrSessionNotFound, "session_id", sessionID)
		}
		return nil, StorageFailure("get session identity", err)
	}

	if ident.Session.IsExpiredAt(m.now(), m.ttl) {
		return nil, fail(CodeSessionExpired, ErrSessionExpired,
			"session_id", sessionID,
			"expired_at", ident.Session.ExpiresAt(m.ttl))
	}
	return ident, nil
}

// activateBound is the completion action of the token flows that unlock a
// session. A token whose session cannot be activated is a distinct failure.
func (m *SessionManager) activateBound(ctx context.Context, tok *AuthToken) error {
	ok, err := m.ActivateSession(ctx, tok.SessionID)
	if err != nil {
		return err
	}
	if !ok {
		return fail(CodeSessionActivationFailed, ErrSessionActivationFailed,
			"session_id", tok.SessionID,
			"token_id", tok.ID)
	}
	return nil
}
