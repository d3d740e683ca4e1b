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

// TokenRepository implements auth.TokenRepository using PostgreSQL.
type TokenRepository struct {
	db DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create inserts a new token row.
func (r *TokenRepository) Create(ctx context.Context, token *auth.AuthToken) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO auth_tokens (token_id, user_id, session_id, token, type, created, modified, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
	`, token.ID, token.UserID, token.SessionID, token.Token, int16(token.Type), token.Created, token.Modified)
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert auth token").
			With("type", token.Type.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert auth token").
			With("type", token.Type.String()).
			Wrap(auth.ErrNotPersisted)
	}
	return nil
}

// FindLive locks and returns the oldest live token matching q. The token is
// located by ID when q.TokenID is set, otherwise by its secret.
func (r *TokenRepository) FindLive(ctx context.Context, q auth.TokenQuery) (*auth.AuthToken, error) {
	column, key := "t.token", q.Secret
	if q.TokenID != "" {
		column, key = "t.token_id", q.TokenID
	}
	if key == "" {
		return nil, oops.Code("TOKEN_NOT_FOUND").
			With("type", q.Type.String()).
			Wrap(auth.ErrNotFound)
	}

	row := conn(ctx, r.db).QueryRow(ctx, `
		SELECT t.token_id, t.user_id, t.session_id, t.token, t.type, t.created, t.modified, t.deleted
		FROM auth_tokens t
		WHERE `+column+` = $1 AND t.user_id = $2 AND t.session_id = $3 AND t.type = $4
		AND `+liveToken+`
		ORDER BY t.created, t.token_id
		LIMIT 1
		FOR UPDATE`,
		key, q.UserID, q.SessionID, int16(q.Type))

	var (
		tok auth.AuthToken
		typ int16
	)
	err := row.Scan(&tok.ID, &tok.UserID, &tok.SessionID, &tok.Token, &typ, &tok.Created, &tok.Modified, &tok.Deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").
			With("type", q.Type.String()).
			With("session_id", q.SessionID).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").
			With("operation", "find live token").
			With("type", q.Type.String()).
			Wrap(err)
	}
	tok.Type = auth.TokenType(typ)
	return &tok, nil
}

// Deactivate soft-deletes a live token.
func (r *TokenRepository) Deactivate(ctx context.Context, tokenID string, now time.Time) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE auth_tokens t SET deleted = TRUE, modified = $2
		WHERE t.token_id = $1 AND `+liveToken,
		tokenID, now)
	if err != nil {
		return false, oops.Code("TOKEN_DEACTIVATE_FAILED").
			With("operation", "deactivate auth token").
			With("token_id", tokenID).
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// Compile-time interface check.
var _ auth.TokenRepository = (*TokenRepository)(nil)
