// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import (
	"context"
	"time"
)

// DefaultSessionTTL is the lifetime of a session after its last modification.
const DefaultSessionTTL = 24 * time.Hour

// SessionState is the lifecycle position of a session.
type SessionState string

// Session states.
const (
	SessionPending    SessionState = "pending"
	SessionActive     SessionState = "active"
	SessionTerminated SessionState = "terminated"
)

// Session is one authenticated context for a user. Modified is the
// authority for expiry.
type Session struct {
	ID       string
	UserID   string
	Created  time.Time
	Modified time.Time
	Active   bool
	Deleted  bool
}

// State derives the lifecycle state from the stored flags.
func (s *Session) State() SessionState {
	switch {
	case s.Deleted:
		return SessionTerminated
	case s.Active:
		return SessionActive
	default:
		return SessionPending
	}
}

// ExpiresAt returns the instant after which the session is expired.
func (s *Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.Modified.Add(ttl)
}

// IsExpiredAt reports whether the session is expired at now.
// A session is still valid at exactly Modified+ttl.
func (s *Session) IsExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.After(s.ExpiresAt(ttl))
}

// SessionIdentity is a live session joined with its live owner.
type SessionIdentity struct {
	Session  Session
	Username string
}

// SessionRepository persists sessions.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetIdentity retrieves a live session joined with its live user.
	// Returns ErrNotFound when either side is missing or deleted.
	GetIdentity(ctx context.Context, sessionID string) (*SessionIdentity, error)

	// Activate sets active on a live session and reports whether a row was
	// affected.
	Activate(ctx context.Context, sessionID string, now time.Time) (bool, error)

	// Delete terminates a live session (active cleared, deleted set) and
	// reports whether a row was affected.
	Delete(ctx context.Context, sessionID string, now time.Time) (bool, error)
}
