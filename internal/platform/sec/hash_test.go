// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/breachlab/breachlab/internal/platform/sec"
)

/*
TestPasswordHasher verifies hashing and comparison behavior.
*/
func TestPasswordHasher(t *testing.T) {
	// MinCost keeps the suite fast; production cost comes from config.
	hasher := sec.NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, hasher.Compare("correct horse battery staple", hash))
	assert.False(t, hasher.Compare("wrong password", hash))
	assert.False(t, hasher.Compare("correct horse battery staple", "not-a-bcrypt-hash"))
}

/*
TestGenerateSecureToken verifies entropy material is fresh per call.
*/
func TestGenerateSecureToken(t *testing.T) {
	first, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	second, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

/*
TestHashToken verifies the digest is deterministic and one-way shaped.
*/
func TestHashToken(t *testing.T) {
	digest := sec.HashToken("some-refresh-token")

	assert.Equal(t, digest, sec.HashToken("some-refresh-token"))
	assert.NotEqual(t, digest, sec.HashToken("some-other-token"))
	assert.Len(t, digest, 64) // hex-encoded SHA-256
}
