// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package postgres

import "github.com/viixet/authn/internal/auth"

// NewStore builds the repositories and transactor over db.
func NewStore(db DB) auth.Store {
	return auth.Store{
		Users:    NewUserRepository(db),
		Sessions: NewSessionRepository(db),
		Tokens:   NewTokenRepository(db),
		Tx:       NewTransactor(db),
	}
}
