// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ID formats accepted by NewIDGenerator.
const (
	IDFormatULID = "ulid"
	IDFormatUUID = "uuid"
)

// TokenSecretBytes is the entropy of secrets from GenerateTokenSecret.
const TokenSecretBytes = 32 // 32 bytes = 64 hex chars

// IDGenerator mints the opaque identifiers for users, sessions and tokens.
type IDGenerator interface {
	NewID() string
}

// ULIDGenerator produces lexicographically sortable ULIDs.
type ULIDGenerator struct{}

// NewID returns a fresh ULID string.
func (ULIDGenerator) NewID() string {
	return ulid.Make().String()
}

// UUIDGenerator produces random (version 4) UUIDs.
type UUIDGenerator struct{}

// NewID returns a fresh UUIDv4 string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// NewIDGenerator returns the generator for format. Empty selects ULID.
func NewIDGenerator(format string) (IDGenerator, error) {
	switch format {
	case "", IDFormatULID:
		return ULIDGenerator{}, nil
	case IDFormatUUID:
		return UUIDGenerator{}, nil
	default:
		return nil, oops.Code("AUTH_UNKNOWN_ID_FORMAT").
			With("format", format).
			Errorf("unknown id format %q", format)
	}
}

// DigitSource yields uniformly random decimal digits for two-factor codes.
type DigitSource interface {
	// Digit returns a value in [0, 9].
	Digit() (int, error)
}

// CryptoDigits draws digits from crypto/rand.
type CryptoDigits struct{}

var ten = big.NewInt(10)

// Digit returns a uniformly random digit.
func (CryptoDigits) Digit() (int, error) {
	n, err := rand.Int(rand.Reader, ten)
	if err != nil {
		return 0, oops.Code("AUTH_DIGIT_FAILED").With("operation", "crypto/rand.Int").Wrap(err)
	}
	return int(n.Int64()), nil
}

// GenerateTokenSecret creates a high-entropy secret suitable for the
// email-login and password-renewal flows. The caller delivers it
// out of band (a link, typically) and presents it back unchanged.
func GenerateTokenSecret() (string, error) {
	b := make([]byte, TokenSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("AUTH_SECRET_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenSecretBytes).
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}
