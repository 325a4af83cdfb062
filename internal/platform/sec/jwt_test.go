// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breachlab/breachlab/internal/platform/sec"
)

func newTestTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) *sec.TokenService {
	t.Helper()

	service, err := sec.NewTokenService(
		"access-secret-for-tests",
		"refresh-secret-for-tests",
		"breachlab.test",
		accessTTL,
		refreshTTL,
	)
	require.NoError(t, err)
	return service
}

/*
TestTokenService_AccessRoundTrip verifies that a freshly minted access token
decodes back to its subject.
*/
func TestTokenService_AccessRoundTrip(t *testing.T) {
	service := newTestTokenService(t, 15*time.Minute, 7*24*time.Hour)

	token, expiresAt, err := service.GenerateAccessToken("user-123")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := service.Verify(token, sec.TokenKindAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, sec.TokenKindAccess, claims.Kind)
}

/*
TestTokenService_KindSeparation verifies that tokens of one kind never pass
verification as the other, in either direction.
*/
func TestTokenService_KindSeparation(t *testing.T) {
	service := newTestTokenService(t, 15*time.Minute, 7*24*time.Hour)

	accessToken, _, err := service.GenerateAccessToken("user-123")
	require.NoError(t, err)
	refreshToken, _, err := service.GenerateRefreshToken("user-123")
	require.NoError(t, err)

	_, err = service.Verify(accessToken, sec.TokenKindRefresh)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)

	_, err = service.Verify(refreshToken, sec.TokenKindAccess)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)

	_, err = service.Verify(refreshToken, sec.TokenKindRefresh)
	assert.NoError(t, err)
}

/*
TestTokenService_MintUniqueness verifies that back-to-back mints for the
same user are distinct tokens. Timestamps alone cannot guarantee this
(second precision), so each token must carry a unique jti; the session
ledger relies on it when it keys refresh tokens by hash.
*/
func TestTokenService_MintUniqueness(t *testing.T) {
	service := newTestTokenService(t, 15*time.Minute, 7*24*time.Hour)

	firstRefresh, _, err := service.GenerateRefreshToken("user-123")
	require.NoError(t, err)
	secondRefresh, _, err := service.GenerateRefreshToken("user-123")
	require.NoError(t, err)
	assert.NotEqual(t, firstRefresh, secondRefresh)

	firstAccess, _, err := service.GenerateAccessToken("user-123")
	require.NoError(t, err)
	secondAccess, _, err := service.GenerateAccessToken("user-123")
	require.NoError(t, err)
	assert.NotEqual(t, firstAccess, secondAccess)

	firstClaims, err := service.Verify(firstRefresh, sec.TokenKindRefresh)
	require.NoError(t, err)
	secondClaims, err := service.Verify(secondRefresh, sec.TokenKindRefresh)
	require.NoError(t, err)
	assert.NotEmpty(t, firstClaims.ID)
	assert.NotEqual(t, firstClaims.ID, secondClaims.ID)
}

/*
TestTokenService_Expiry verifies that expiry yields the dedicated sentinel
rather than the generic invalid-token error.
*/
func TestTokenService_Expiry(t *testing.T) {
	service := newTestTokenService(t, -1*time.Minute, 7*24*time.Hour)

	token, _, err := service.GenerateAccessToken("user-123")
	require.NoError(t, err)

	_, err = service.Verify(token, sec.TokenKindAccess)
	assert.ErrorIs(t, err, sec.ErrExpiredToken)
}

/*
TestTokenService_Tampering verifies that garbage and foreign-key signatures
are rejected.
*/
func TestTokenService_Tampering(t *testing.T) {
	service := newTestTokenService(t, 15*time.Minute, 7*24*time.Hour)

	other, err := sec.NewTokenService(
		"a-completely-different-secret",
		"another-completely-different-secret",
		"breachlab.test",
		15*time.Minute,
		7*24*time.Hour,
	)
	require.NoError(t, err)

	foreign, _, err := other.GenerateAccessToken("user-123")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"foreign_signature", foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Verify(tt.token, sec.TokenKindAccess)
			assert.ErrorIs(t, err, sec.ErrInvalidToken)
		})
	}
}

/*
TestNewTokenService_SecretPolicy verifies constructor guards on the secrets.
*/
func TestNewTokenService_SecretPolicy(t *testing.T) {
	_, err := sec.NewTokenService("", "refresh", "iss", time.Minute, time.Hour)
	assert.Error(t, err)

	_, err = sec.NewTokenService("same", "same", "iss", time.Minute, time.Hour)
	assert.Error(t, err)
}
