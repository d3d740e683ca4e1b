// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

// Package mocks provides testify/mock doubles for the auth interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/viixet/authn/internal/auth"
)

// UserRepository mocks auth.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) Exists(ctx context.Context, identifier string, includeDeleted bool) (bool, error) {
	args := m.Called(ctx, identifier, includeDeleted)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

func (m *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, now time.Time) (bool, error) {
	args := m.Called(ctx, userID, passwordHash, now)
	return args.Bool(0), args.Error(1)
}

// SessionRepository mocks auth.SessionRepository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *SessionRepository) GetIdentity(ctx context.Context, sessionID string) (*auth.SessionIdentity, error) {
	args := m.Called(ctx, sessionID)
	si, _ := args.Get(0).(*auth.SessionIdentity)
	return si, args.Error(1)
}

func (m *SessionRepository) Activate(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	args := m.Called(ctx, sessionID, now)
	return args.Bool(0), args.Error(1)
}

func (m *SessionRepository) Delete(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	args := m.Called(ctx, sessionID, now)
	return args.Bool(0), args.Error(1)
}

// TokenRepository mocks auth.TokenRepository.
type TokenRepository struct {
	mock.Mock
}

func (m *TokenRepository) Create(ctx context.Context, token *auth.AuthToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *TokenRepository) FindLive(ctx context.Context, q auth.TokenQuery) (*auth.AuthToken, error) {
	args := m.Called(ctx, q)
	t, _ := args.Get(0).(*auth.AuthToken)
	return t, args.Error(1)
}

func (m *TokenRepository) Deactivate(ctx context.Context, tokenID string, now time.Time) (bool, error) {
	args := m.Called(ctx, tokenID, now)
	return args.Bool(0), args.Error(1)
}

// Transactor runs fn directly, recording each call and its outcome.
type Transactor struct {
	mock.Mock
}

func (m *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

// PasswordHasher mocks auth.PasswordHasher.
type PasswordHasher struct {
	mock.Mock
}

func (m *PasswordHasher) Hash(secret string) (string, error) {
	args := m.Called(secret)
	return args.String(0), args.Error(1)
}

func (m *PasswordHasher) Verify(secret, hash string) (bool, error) {
	args := m.Called(secret, hash)
	return args.Bool(0), args.Error(1)
}

// IDGenerator mocks auth.IDGenerator.
type IDGenerator struct {
	mock.Mock
}

func (m *IDGenerator) NewID() string {
	return m.Called().String(0)
}

// DigitSource mocks auth.DigitSource.
type DigitSource struct {
	mock.Mock
}

func (m *DigitSource) Digit() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

// Store bundles fresh mocks as an auth.Store.
func Store() (auth.Store, *UserRepository, *SessionRepository, *TokenRepository, *Transactor) {
	users, sessions, tokens, tx := &UserRepository{}, &SessionRepository{}, &TokenRepository{}, &Transactor{}
	return auth.Store{Users: users, Sessions: sessions, Tokens: tokens, Tx: tx}, users, sessions, tokens, tx
}

var (
	_ auth.UserRepository    = (*UserRepository)(nil)
	_ auth.SessionRepository = (*SessionRepository)(nil)
	_ auth.TokenRepository   = (*TokenRepository)(nil)
	_ auth.Transactor        = (*Transactor)(nil)
	_ auth.PasswordHasher    = (*PasswordHasher)(nil)
	_ auth.IDGenerator       = (*IDGenerator)(nil)
	_ auth.DigitSource       = (*DigitSource)(nil)
)
