// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import (
	"context"

	"github.com/samber/oops"
)

// TwoFactorChallenge is an issued two-factor code. Digits are delivered out
// of band; TokenID is echoed back by the client with the digits.
type TwoFactorChallenge struct {
	TokenID string
	Digits  []int
}

// TokenManager issues auth tokens and runs the three token flows.
type TokenManager struct {
	tokens   TokenRepository
	tx       Transactor
	sessions *SessionManager
	identity *IdentityManager
	hasher   PasswordHasher
	ids      IDGenerator
	digits   DigitSource
	now      Clock

	twoFactor       tokenFlow
	emailLogin      tokenFlow
	passwordRenewal tokenFlow
}

// NewTokenManager creates a TokenManager.
func NewTokenManager(
	tokens TokenRepository,
	tx Transactor,
	sessions *SessionManager,
	identity *IdentityManager,
	hasher PasswordHasher,
	ids IDGenerator,
	digits DigitSource,
	now Clock,
) *TokenManager {
	m := &TokenManager{
		tokens:   tokens,
		tx:       tx,
		sessions: sessions,
		identity: identity,
		hasher:   hasher,
		ids:      ids,
		digits:   digits,
		now:      now,
	}

	m.twoFactor = tokenFlow{
		typ:      TokenTwoFactor,
		byID:     true,
		match:    hasher.Verify,
		complete: sessions.activateBound,
	}
	m.emailLogin = tokenFlow{
		typ:      TokenEmailLogin,
		match:    exactMatch,
		complete: sessions.activateBound,
	}
	// Password renewal does not touch the session.
	m.passwordRenewal = tokenFlow{
		typ:   TokenPasswordRenewal,
		match: exactMatch,
	}
	return m
}

// CreateAuthToken stores a token binding secret to userID and sessionID and
// returns its ID. The secret is stored as given.
func (m *TokenManager) CreateAuthToken(ctx context.Context, typ TokenType, secret, userID, sessionID string) (string, error) {
	if !typ.Valid() {
		return "", oops.Code("TOKEN_INVALID_TYPE").With("type", int(typ)).Errorf("unknown token type")
	}
	if secret == "" {
		return "", oops.Code("TOKEN_EMPTY_SECRET").Errorf("token secret cannot be empty")
	}

	now := m.now()
	tok := &AuthToken{
		ID:        m.ids.NewID(),
		UserID:    userID,
		SessionID: sessionID,
		Token:     secret,
		Type:      typ,
		Created:   now,
		Modified:  now,
	}
	if err := m.tokens.Create(ctx, tok); err != nil {
		return "", StorageFailure("create token", err)
	}
	return tok.ID, nil
}

// DeactivateAuthToken consumes a token. It reports false for tokens that
// were already consumed or never existed.
func (m *TokenManager) DeactivateAuthToken(ctx context.Context, tokenID string) (bool, error) {
	ok, err := m.tokens.Deactivate(ctx, tokenID, m.now())
	if err != nil {
		return false, StorageFailure("deactivate token", err)
	}
	return ok, nil
}

// CreateTwoFactorCode draws six independent digits, stores their hash as a
// two-factor token and returns the plaintext digits with the token ID.
func (m *TokenManager) CreateTwoFactorCode(ctx context.Context, userID, sessionID string) (*TwoFactorChallenge, error) {
	digits := make([]int, TwoFactorDigits)
	for i := range digits {
		d, err := m.digits.Digit()
		if err != nil {
			return nil, err
		}
		digits[i] = d
	}

	code, err := JoinCode(digits)
	if err != nil {
		return nil, err
	}
	hash, err := m.hasher.Hash(code)
	if err != nil {
		return nil, err
	}

	tokenID, err := m.CreateAuthToken(ctx, TokenTwoFactor, hash, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return &TwoFactorChallenge{TokenID: tokenID, Digits: digits}, nil
}

// AuthenticateTwoFactorCode verifies digits against the scoped two-factor
// token, consumes it and activates the session, all in one transaction.
func (m *TokenManager) AuthenticateTwoFactorCode(ctx context.Context, digits []int, tokenID, userID, sessionID string) error {
	code, err := JoinCode(digits)
	if err != nil {
		return fail(CodeTokenInvalid, ErrTokenInvalid, "token_id", tokenID, "reason", err.Error())
	}

	return m.tx.InTransaction(ctx, func(ctx context.Context) error {
		_, err := m.consume(ctx, m.twoFactor, presentation{
			secret:    code,
			tokenID:   tokenID,
			userID:    userID,
			sessionID: sessionID,
		})
		return err
	})
}

// CreateEmailLoginToken stores a caller-generated email-login secret.
func (m *TokenManager) CreateEmailLoginToken(ctx context.Context, secret, userID, sessionID string) (string, error) {
	return m.CreateAuthToken(ctx, TokenEmailLogin, secret, userID, sessionID)
}

// AuthenticateLoginToken consumes the scoped email-login token and activates
// the session in one transaction.
func (m *TokenManager) AuthenticateLoginToken(ctx context.Context, secret, userID, sessionID string) error {
	if secret == "" {
		return fail(CodeTokenNotFound, ErrTokenNotFound, "type", TokenEmailLogin.String())
	}
	return m.tx.InTransaction(ctx, func(ctx context.Context) error {
		_, err := m.consume(ctx, m.emailLogin, presentation{
			secret:    secret,
			userID:    userID,
			sessionID: sessionID,
		})
		return err
	})
}

// CreatePasswordRenewalToken stores a caller-generated password-renewal secret.
func (m *TokenManager) CreatePasswordRenewalToken(ctx context.Context, secret, userID, sessionID string) (string, error) {
	return m.CreateAuthToken(ctx, TokenPasswordRenewal, secret, userID, sessionID)
}

// ChangePassword consumes the scoped password-renewal token and replaces the
// user's password hash. It reports whether the user row was updated. The
// session is left as it was.
func (m *TokenManager) ChangePassword(ctx context.Context, newPassword, secret, userID, sessionID string) (bool, error) {
	if secret == "" {
		return false, fail(CodeTokenNotFound, ErrTokenNotFound, "type", TokenPasswordRenewal.String())
	}

	// Hash before opening the transaction; it is the slow part.
	hash, err := m.hasher.Hash(newPassword)
	if err != nil {
		return false, err
	}

	var updated bool
	err = m.tx.InTransaction(ctx, func(ctx context.Context) error {
		tok, err := m.consume(ctx, m.passwordRenewal, presentation{
			secret:    secret,
			userID:    userID,
			sessionID: sessionID,
		})
		if err != nil {
			return err
		}
		updated, err = m.identity.SetPassword(ctx, tok.UserID, hash)
		return err
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}
