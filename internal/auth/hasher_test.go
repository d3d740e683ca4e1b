// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/viixet/authn/internal/auth"
	"github.com/viixet/authn/pkg/errutil"
)

func TestNewPasswordHasher(t *testing.T) {
	h, err := auth.NewPasswordHasher("", 0)
	require.NoError(t, err)
	assert.IsType(t, &auth.BcryptHasher{}, h)

	h, err = auth.NewPasswordHasher(auth.AlgorithmArgon2id, 0)
	require.NoError(t, err)
	assert.IsType(t, &auth.Argon2idHasher{}, h)

	_, err = auth.NewPasswordHasher("md5", 0)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_UNKNOWN_HASHER")
}

func TestNewBcryptHasher_RejectsCostOutOfRange(t *testing.T) {
	for _, cost := range []int{1, bcrypt.MaxCost + 1} {
		_, err := auth.NewBcryptHasher(cost)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_COST")
	}
}

func TestBcryptHasher(t *testing.T) {
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("default cost is 10", func(t *testing.T) {
		h, err := auth.NewBcryptHasher(0)
		require.NoError(t, err)
		hash, err := h.Hash("password123")
		require.NoError(t, err)
		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, auth.DefaultBcryptCost, cost)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("verifies match and mismatch", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = hasher.Verify("wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})

	t.Run("malformed hash returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "not-a-valid-hash")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})
}

func TestArgon2idHasher(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces PHC string", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	})

	t.Run("verifies match and mismatch", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = hasher.Verify("wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})

	malformed := map[string]string{
		"format":    "not-a-valid-hash",
		"algorithm": "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"version":   "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"params":    "$argon2id$v=19$invalid$c2FsdA$aGFzaA",
		"salt":      "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA",
		"key":       "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!",
		"threads":   "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA",
	}
	for name, hash := range malformed {
		t.Run("malformed "+name, func(t *testing.T) {
			_, err := hasher.Verify("password", hash)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
		})
	}
}
