// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/viixet/authn/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO sessions (session_id, user_id, created, modified, active, deleted)
		VALUES ($1, $2, $3, $4, $5, FALSE)
	`, session.ID, session.UserID, session.Created, session.Modified, session.Active)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID).
			Wrap(auth.ErrNotPersisted)
	}
	return nil
}

// GetIdentity retrieves a live session joined with its live owner.
func (r *SessionRepository) GetIdentity(ctx context.Context, sessionID string) (*auth.SessionIdentity, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `
		SELECT s.session_id, s.user_id, s.created, s.modified, s.active, s.deleted, u.username
		FROM sessions s
		JOIN users u ON u.user_id = s.user_id
		WHERE s.session_id = $1 AND `+liveSession+` AND `+liveUser, sessionID)

	var ident auth.SessionIdentity
	s := &ident.Session
	err := row.Scan(&s.ID, &s.UserID, &s.Created, &s.Modified, &s.Active, &s.Deleted, &ident.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("session_id", sessionID).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session identity").
			With("session_id", sessionID).
			Wrap(err)
	}
	return &ident, nil
}

// Activate marks a live session active and refreshes modified.
func (r *SessionRepository) Activate(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE sessions s SET active = TRUE, modified = $2
		WHERE s.session_id = $1 AND `+liveSession,
		sessionID, now)
	if err != nil {
		return false, oops.Code("SESSION_ACTIVATE_FAILED").
			With("operation", "activate session").
			With("session_id", sessionID).
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete terminates a live session. Rows are flagged, never removed.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE sessions s SET active = FALSE, deleted = TRUE, modified = $2
		WHERE s.session_id = $1 AND `+liveSession,
		sessionID, now)
	if err != nil {
		return false, oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			With("session_id", sessionID).
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
