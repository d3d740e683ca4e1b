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

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	extra := user.Extra
	if len(extra) == 0 {
		extra = auth.EmptyExtra
	}

	tag, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO users (user_id, username, password, email, extra, created, modified, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
	`, user.ID, user.Username, user.Password, user.Email, []byte(extra), user.Created, user.Modified)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_CREATE_FAILED").
				With("operation", "insert user").
				With("username", user.Username).
				Wrap(errors.Join(auth.ErrDuplicate, err))
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(auth.ErrNotPersisted)
	}
	return nil
}

// Exists reports whether identifier matches any username or email.
func (r *UserRepository) Exists(ctx context.Context, identifier string, includeDeleted bool) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users u
			WHERE (u.username = $1 OR u.email = $1)
			AND ($2 OR `+liveUser+`)
		)
	`, identifier, includeDeleted).Scan(&exists)
	if err != nil {
		return false, oops.Code("USER_EXISTS_FAILED").
			With("operation", "check user exists").
			Wrap(err)
	}
	return exists, nil
}

// GetByUsername retrieves a live user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `
		SELECT u.user_id, u.username, u.password, u.email, u.extra, u.created, u.modified, u.deleted
		FROM users u
		WHERE u.username = $1 AND `+liveUser, username)

	var (
		u     auth.User
		extra []byte
	)
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Email, &extra, &u.Created, &u.Modified, &u.Deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	u.Extra = extra
	return &u, nil
}

// UpdatePassword replaces the password hash of a live user.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, now time.Time) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE users u SET password = $2, modified = $3
		WHERE u.user_id = $1 AND `+liveUser,
		userID, passwordHash, now)
	if err != nil {
		return false, oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("user_id", userID).
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
