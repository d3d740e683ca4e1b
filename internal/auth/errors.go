// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Repository-level sentinels. Store implementations wrap these; managers
// translate them into the domain kinds below.
var (
	// ErrNotFound is returned when a requested live row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("duplicate")

	// ErrNotPersisted is returned when an insert reports no affected row.
	ErrNotPersisted = errors.New("no row affected")
)

// Error codes attached to the domain sentinels.
const (
	CodeUserAlreadyExists       = "USER_ALREADY_EXISTS"
	CodeUserNotFound            = "USER_NOT_FOUND"
	CodeUserCreationFailed      = "USER_CREATION_FAILED"
	CodeCredentialsInvalid      = "CREDENTIALS_INVALID"
	CodeSessionNotFound         = "SESSION_NOT_FOUND"
	CodeSessionExpired          = "SESSION_EXPIRED"
	CodeSessionCreationFailed   = "SESSION_CREATION_FAILED"
	CodeSessionActivationFailed = "SESSION_ACTIVATION_FAILED"
	CodeTokenNotFound           = "TOKEN_NOT_FOUND"
	CodeTokenInvalid            = "TOKEN_INVALID"
	CodeStorageFailure          = "STORAGE_FAILURE"
)

// Domain error kinds surfaced to callers. Match them with errors.Is; the
// operations wrap them with an oops code and context.
var (
	ErrUserAlreadyExists       = errors.New("user already exists")
	ErrUserNotFound            = errors.New("user not found")
	ErrUserCreationFailed      = errors.New("user creation failed")
	ErrCredentialsInvalid      = errors.New("invalid username or password")
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionExpired          = errors.New("session has expired")
	ErrSessionCreationFailed   = errors.New("session creation failed")
	ErrSessionActivationFailed = errors.New("session could not be activated; token left unused")
	ErrTokenNotFound           = errors.New("token not found")
	ErrTokenInvalid            = errors.New("token invalid")
	ErrStorageFailure          = errors.New("storage failure")
)

// Kind names an error class for logs and metric labels.
type Kind string

// Kinds reported by KindOf.
const (
	KindNone                    Kind = "ok"
	KindUserAlreadyExists       Kind = "user_already_exists"
	KindUserNotFound            Kind = "user_not_found"
	KindUserCreationFailed      Kind = "user_creation_failed"
	KindCredentialsInvalid      Kind = "credentials_invalid"
	KindSessionNotFound         Kind = "session_not_found"
	KindSessionExpired          Kind = "session_expired"
	KindSessionCreationFailed   Kind = "session_creation_failed"
	KindSessionActivationFailed Kind = "session_activation_failed"
	KindTokenNotFound           Kind = "token_not_found"
	KindTokenInvalid            Kind = "token_invalid"
	KindStorageFailure          Kind = "storage_failure"
	KindInvalidInput            Kind = "invalid_input"
)

var kindTable = []struct {
	err  error
	kind Kind
}{
	{ErrUserAlreadyExists, KindUserAlreadyExists},
	{ErrUserNotFound, KindUserNotFound},
	{ErrUserCreationFailed, KindUserCreationFailed},
	{ErrCredentialsInvalid, KindCredentialsInvalid},
	{ErrSessionNotFound, KindSessionNotFound},
	{ErrSessionExpired, KindSessionExpired},
	{ErrSessionCreationFailed, KindSessionCreationFailed},
	{ErrSessionActivationFailed, KindSessionActivationFailed},
	{ErrTokenNotFound, KindTokenNotFound},
	{ErrTokenInvalid, KindTokenInvalid},
	{ErrStorageFailure, KindStorageFailure},
}

// KindOf classifies err. Errors outside the taxonomy (validation of caller
// input, hashing failures) report KindInvalidInput; nil reports KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kindTable {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInvalidInput
}

// storageError joins ErrStorageFailure with the underlying cause so both
// stay reachable through errors.Is and errors.As.
type storageError struct {
	cause error
}

func (e *storageError) Error() string {
	return "storage failure: " + e.cause.Error()
}

func (e *storageError) Unwrap() []error {
	return []error{ErrStorageFailure, e.cause}
}

// StorageFailure wraps a store error that is not a domain outcome. Store
// implementations use it for transaction begin/commit failures.
func StorageFailure(operation string, err error) error {
	return oops.Code(CodeStorageFailure).
		With("operation", operation).
		Wrap(&storageError{cause: err})
}

// fail wraps a domain sentinel with its code and optional key/value context.
func fail(code string, sentinel error, kv ...any) error {
	return oops.Code(code).With(kv...).Wrap(sentinel)
}
