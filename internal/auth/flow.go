// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

// secretMatcher compares the secret a caller presents with the stored token.
type secretMatcher func(presented, stored string) (bool, error)

// exactMatch compares bare random secrets in constant time.
func exactMatch(presented, stored string) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1, nil
}

// tokenFlow is one token purpose: how the live token is located, how the
// presented secret is compared, and what happens once it is consumed.
type tokenFlow struct {
	typ TokenType

	// byID locates the token by its ID and checks the secret afterwards.
	// Otherwise the secret itself is part of the lookup.
	byID bool

	match secretMatcher

	// complete runs in the consuming transaction. Nil means nothing follows.
	complete func(ctx context.Context, tok *AuthToken) error
}

// presentation is what a caller hands back to finish a flow.
type presentation struct {
	secret    string
	tokenID   string
	userID    string
	sessionID string
}

// consume finds the scoped live token, checks the secret, deactivates the
// token and runs the completion action. Callers run it inside a transaction
// so that a failing completion leaves the token live.
func (m *TokenManager) consume(ctx context.Context, flow tokenFlow, p presentation) (*AuthToken, error) {
	q := TokenQuery{
		UserID:    p.userID,
		SessionID: p.sessionID,
		Type:      flow.typ,
	}
	if flow.byID {
		q.TokenID = p.tokenID
	} else {
		q.Secret = p.secret
	}

	tok, err := m.tokens.FindLive(ctx, q)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fail(CodeTokenNotFound, ErrTokenNotFound,
				"type", flow.typ.String(),
				"session_id", p.sessionID)
		}
		return nil, StorageFailure("find token", err)
	}

	ok, err := flow.match(p.secret, tok.Token)
	if err != nil {
		return nil, fail(CodeTokenInvalid, ErrTokenInvalid,
			"type", flow.typ.String(),
			"token_id", tok.ID,
			"reason", err.Error())
	}
	if !ok {
		return nil, fail(CodeTokenInvalid, ErrTokenInvalid,
			"type", flow.typ.String(),
			"token_id", tok.ID)
	}

	deactivated, err := m.tokens.Deactivate(ctx, tok.ID, m.now())
	if err != nil {
		return nil, StorageFailure("deactivate token", err)
	}
	if !deactivated {
		// Consumed by a concurrent caller between lookup and update.
		return nil, fail(CodeTokenNotFound, ErrTokenNotFound,
			"type", flow.typ.String(),
			"token_id", tok.ID)
	}

	if flow.complete != nil {
		if err := flow.complete(ctx, tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}
