// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// TokenType scopes an auth token to one flow. The numeric values are stored.
type TokenType int

// Token types.
const (
	TokenTwoFactor       TokenType = 1
	TokenPasswordRenewal TokenType = 2
	TokenEmailLogin      TokenType = 3
)

// String returns the flow name.
func (t TokenType) String() string {
	switch t {
	case TokenTwoFactor:
		return "twoFactor"
	case TokenPasswordRenewal:
		return "passwordRenewal"
	case TokenEmailLogin:
		return "emailLogin"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Valid reports whether t is one of the defined token types.
func (t TokenType) Valid() bool {
	return t >= TokenTwoFactor && t <= TokenEmailLogin
}

// Two-factor code shape.
const (
	TwoFactorDigits    = 6
	twoFactorSeparator = "-"
)

// AuthToken is a single-use secret bound to one user and session.
type AuthToken struct {
	ID        string
	UserID    string
	SessionID string
	Token     string
	Type      TokenType
	Created   time.Time
	Modified  time.Time
	Deleted   bool
}

// TokenQuery selects a live token. Exactly one of TokenID or Secret is set;
// UserID, SessionID and Type always scope the lookup.
type TokenQuery struct {
	TokenID   string
	Secret    string
	UserID    string
	SessionID string
	Type      TokenType
}

// TokenRepository persists auth tokens.
type TokenRepository interface {
	// Create stores a new token.
	Create(ctx context.Context, token *AuthToken) error

	// FindLive returns the live token matching q, or ErrNotFound.
	FindLive(ctx context.Context, q TokenQuery) (*AuthToken, error)

	// Deactivate soft-deletes a live token and reports whether a row was
	// affected. A token that was already consumed reports false.
	Deactivate(ctx context.Context, tokenID string, now time.Time) (bool, error)
}

// JoinCode renders two-factor digits in the canonical form that is hashed.
func JoinCode(digits []int) (string, error) {
	if len(digits) != TwoFactorDigits {
		return "", oops.Code("TOKEN_INVALID_CODE").
			With("digits", len(digits)).
			Errorf("two-factor code must have %d digits", TwoFactorDigits)
	}
	parts := make([]string, len(digits))
	for i, d := range digits {
		if d < 0 || d > 9 {
			return "", oops.Code("TOKEN_INVALID_CODE").
				With("position", i).
				Errorf("two-factor code digit out of range")
		}
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, twoFactorSeparator), nil
}
