// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/samber/oops"
)

// EmptyExtra is the metadata stored for freshly registered users.
var EmptyExtra = json.RawMessage(`{}`)

// User is a registered identity. Password holds a one-way hash.
type User struct {
	ID       string
	Username string
	Password string
	Email    string
	Extra    json.RawMessage
	Created  time.Time
	Modified time.Time
	Deleted  bool
}

// NewUser creates a validated User with empty metadata.
// passwordHash must already be hashed; plaintext never reaches a User.
func NewUser(id, username, passwordHash, email string, now time.Time) (*User, error) {
	if id == "" {
		return nil, oops.Code("USER_INVALID_ID").Errorf("user ID cannot be empty")
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_PASSWORD").Errorf("password hash cannot be empty")
	}
	return &User{
		ID:       id,
		Username: username,
		Password: passwordHash,
		Email:    email,
		Extra:    EmptyExtra,
		Created:  now,
		Modified: now,
	}, nil
}

// ValidateUsername rejects empty or whitespace-padded usernames.
// Usernames are case-sensitive and otherwise unrestricted.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if strings.TrimSpace(username) != username {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("username", username).
			Errorf("username cannot start or end with whitespace")
	}
	return nil
}

// ValidateEmail performs the minimal shape check the store relies on.
func ValidateEmail(email string) error {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("email", email).
			Errorf("email must have the form local@domain")
	}
	return nil
}

// UserRepository persists users. Reads never return deleted rows unless the
// method says otherwise.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicate when the username or
	// email is already held by a live user.
	Create(ctx context.Context, user *User) error

	// Exists reports whether identifier matches any username or email.
	// When includeDeleted is true, soft-deleted users count as matches.
	Exists(ctx context.Context, identifier string, includeDeleted bool) (bool, error)

	// GetByUsername retrieves a live user by exact username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// UpdatePassword replaces the password hash of a live user and reports
	// whether a row was affected.
	UpdatePassword(ctx context.Context, userID, passwordHash string, now time.Time) (bool, error)
}
