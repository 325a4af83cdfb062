// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/breachlab/breachlab/pkg/uuid"
)

// # Token Kinds

// TokenKind tags a JWT as an access or refresh token.
//
// The kind is embedded as an explicit claim and checked structurally during
// verification. A refresh token can therefore never pass an access-token
// check, even though both travel through the same code path.
type TokenKind string

const (
	// TokenKindAccess is the short-lived per-request credential.
	TokenKindAccess TokenKind = "access"

	// TokenKindRefresh is the long-lived credential exchanged for new pairs.
	TokenKindRefresh TokenKind = "refresh"
)

// # Verification Errors

var (
	// ErrInvalidToken indicates a malformed token, a bad signature, or a kind mismatch.
	ErrInvalidToken = errors.New("sec: invalid token")

	// ErrExpiredToken indicates a structurally valid token past its expiry.
	ErrExpiredToken = errors.New("sec: expired token")
)

// AuthClaims represents the payload embedded inside a BreachLab JWT.
//
// The claim set is deliberately minimal: the Protect middleware re-loads the
// account on every request, so the token only needs to prove WHO the bearer
// is and WHEN the proof was minted.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID string    `json:"uid"`
	Kind   TokenKind `json:"knd"`
}

// TokenService handles generation and verification of JWT tokens using HS256.
//
// # Key Separation
//
// Access and refresh tokens are signed with independent secrets so that
// compromise of one does not compromise the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService creates a TokenService with per-kind secrets and lifetimes.
func NewTokenService(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("sec: token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("sec: access and refresh secrets must differ")
	}

	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (service *TokenService) RefreshTTL() time.Duration { return service.refreshTTL }

// GenerateAccessToken mints a short-lived access token for a user.
// It returns the signed string and its absolute expiry.
func (service *TokenService) GenerateAccessToken(userID string) (string, time.Time, error) {
	return service.generate(userID, TokenKindAccess, service.accessTTL, service.accessSecret)
}

// GenerateRefreshToken mints a long-lived refresh token for a user.
// It returns the signed string and its absolute expiry.
func (service *TokenService) GenerateRefreshToken(userID string) (string, time.Time, error) {
	return service.generate(userID, TokenKindRefresh, service.refreshTTL, service.refreshSecret)
}

// generate builds and signs a claim set for the given kind.
func (service *TokenService) generate(userID string, kind TokenKind, ttl time.Duration, secret []byte) (string, time.Time, error) {
	currentTime := time.Now()
	expiresAt := currentTime.Add(ttl)

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti makes every mint unique: timestamps have second
			// precision, and downstream bookkeeping (the session ledger)
			// keys refresh tokens by hash.
			ID:        uuid.New(),
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Kind:   kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign %s token: %w", kind, err)
	}

	return signedToken, expiresAt, nil
}

// Verify checks the signature, expiry, and kind tag of a JWT string.
//
// Verification is pure: it never touches storage. Membership checks for
// refresh tokens belong to the session ledger, not here.
func (service *TokenService) Verify(tokenString string, kind TokenKind) (*AuthClaims, error) {
	secret := service.accessSecret
	if kind == TokenKindRefresh {
		secret = service.refreshSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// The kind tag must match structurally, independent of which secret
	// happened to validate the signature.
	if claims.Kind != kind {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
