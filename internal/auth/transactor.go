// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import "context"

// Transactor runs fn inside one store transaction. Repository calls made
// with the context passed to fn participate in it. A nil return commits;
// any error rolls back and is returned unchanged.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles the credential store capabilities the managers need.
type Store struct {
	Users    UserRepository
	Sessions SessionRepository
	Tokens   TokenRepository
	Tx       Transactor
}
