// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import (
	"context"
	"errors"
)

// IdentityManager handles registration and credential checks against users.
type IdentityManager struct {
	users  UserRepository
	tx     Transactor
	hasher PasswordHasher
	ids    IDGenerator
	now    Clock

	// reuseDeletedHandles lets a soft-deleted user's username or email be
	// registered again. Off by default: deleted accounts keep their handles.
	reuseDeletedHandles bool
}

// NewIdentityManager creates an IdentityManager.
func NewIdentityManager(users UserRepository, tx Transactor, hasher PasswordHasher, ids IDGenerator, now Clock) *IdentityManager {
	return &IdentityManager{
		users:  users,
		tx:     tx,
		hasher: hasher,
		ids:    ids,
		now:    now,
	}
}

// SetReuseDeletedHandles changes the re-registration policy for handles held
// by soft-deleted users.
func (m *IdentityManager) SetReuseDeletedHandles(reuse bool) {
	m.reuseDeletedHandles = reuse
}

// UserExists reports whether identifier matches a username or an email.
// Soft-deleted users match unless deleted handles may be reused.
func (m *IdentityManager) UserExists(ctx context.Context, identifier string) (bool, error) {
	exists, err := m.users.Exists(ctx, identifier, !m.reuseDeletedHandles)
	if err != nil {
		return false, StorageFailure("check user exists", err)
	}
	return exists, nil
}

// RegisterUser hashes password and stores a new user, returning its ID.
// Both the username and the email are checked for existing holders; the
// store's unique indexes close the race between check and insert.
func (m *IdentityManager) RegisterUser(ctx context.Context, username, password, email string) (string, error) {
	if err := ValidateUsername(username); err != nil {
		return "", err
	}
	if err := ValidateEmail(email); err != nil {
		return "", err
	}

	// Hash outside the transaction; it is the slow part.
	hash, err := m.hasher.Hash(password)
	if err != nil {
		return "", err
	}

	user, err := NewUser(m.ids.NewID(), username, hash, email, m.now())
	if err != nil {
		return "", err
	}

	err = m.tx.InTransaction(ctx, func(ctx context.Context) error {
		for _, handle := range []string{username, email} {
			exists, err := m.UserExists(ctx, handle)
			if err != nil {
				return err
			}
			if exists {
				return fail(CodeUserAlreadyExists, ErrUserAlreadyExists, "username", username)
			}
		}

		err := m.users.Create(ctx, user)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrDuplicate):
			return fail(CodeUserAlreadyExists, ErrUserAlreadyExists, "username", username, "cause", "unique index")
		case errors.Is(err, ErrNotPersisted):
			return fail(CodeUserCreationFailed, ErrUserCreationFailed, "username", username)
		default:
			return StorageFailure("create user", err)
		}
	})
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// VerifyCredentials returns the live user named username if password
// matches. Unknown usernames still pay for one hash verification.
func (m *IdentityManager) VerifyCredentials(ctx context.Context, username, password string) (*User, error) {
	user, err := m.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, StorageFailure("get user by username", err)
		}
		//nolint:errcheck // timing parity only; the result is discarded
		m.hasher.Verify(password, dummyHashFor(m.hasher))
		return nil, fail(CodeUserNotFound, ErrUserNotFound, "username", username)
	}

	ok, err := m.hasher.Verify(password, user.Password)
	if err != nil {
		return nil, fail(CodeCredentialsInvalid, ErrCredentialsInvalid, "user_id", user.ID, "reason", err.Error())
	}
	if !ok {
		return nil, fail(CodeCredentialsInvalid, ErrCredentialsInvalid, "user_id", user.ID)
	}
	return user, nil
}

// SetPassword stores an already hashed password for userID and reports
// whether a live user was updated.
func (m *IdentityManager) SetPassword(ctx context.Context, userID, passwordHash string) (bool, error) {
	updated, err := m.users.UpdatePassword(ctx, userID, passwordHash, m.now())
	if err != nil {
		return false, StorageFailure("update password", err)
	}
	return updated, nil
}
