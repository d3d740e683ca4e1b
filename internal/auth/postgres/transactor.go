// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/viixet/authn/internal/auth"
)

// Transactor implements auth.Transactor. The active pgx.Tx travels in the
// context so repository calls made by fn join it.
type Transactor struct {
	db DB
}

// NewTransactor creates a Transactor backed by db.
func NewTransactor(db DB) *Transactor {
	return &Transactor{db: db}
}

// InTransaction begins a transaction, stores it in context, and calls fn.
// If fn returns nil, the transaction is committed. Otherwise it is rolled back.
// A context that already carries a transaction is reused as is.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.Begin(ctx)
	if err != nil {
		return auth.StorageFailure("begin transaction", oops.Code("TX_BEGIN_FAILED").Wrap(err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck // fn's error takes precedence
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		committed = true // a failed commit ends the transaction
		return auth.StorageFailure("commit transaction", oops.Code("TX_COMMIT_FAILED").Wrap(err))
	}
	committed = true
	return nil
}

// Compile-time interface check.
var _ auth.Transactor = (*Transactor)(nil)
