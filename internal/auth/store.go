// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package auth

import (
	stdctx "context"
	"errors"
	"time"

	"github.com/breachlab/breachlab/internal/platform/sec"
)

// # Storage Errors

// ErrSessionNotFound is returned by session lookups when no record matches.
// The ledger translates it into its own reuse-detection semantics.
var ErrSessionNotFound = errors.New("auth: session not found")

// # Storage Contracts

/*
UserRepository defines persistence operations for the identity records.

# Error Contract

Lookup methods return *apperr.AppError (NotFound) when no record matches.
Create returns a ValidationError when a unique index rejects the write.
*/
type UserRepository interface {
	Create(context stdctx.Context, user *User) error
	FindByID(context stdctx.Context, userID string) (*User, error)
	FindByEmail(context stdctx.Context, email string) (*User, error)
	FindByUsername(context stdctx.Context, username string) (*User, error)
	FindByResetHash(context stdctx.Context, resetHash string) (*User, error)

	UpdateProfile(context stdctx.Context, userID, displayName, bio string) (*User, error)
	UpdatePassword(context stdctx.Context, userID, passwordHash string, changedAt time.Time) error
	SetLastLogin(context stdctx.Context, userID string, loginAt time.Time) error
	SetResetSecret(context stdctx.Context, userID, resetHash string, expiresAt time.Time) error
	ClearResetSecret(context stdctx.Context, userID string) error
	SetRole(context stdctx.Context, userID string, role sec.UserRole) (*User, error)
	SetActive(context stdctx.Context, userID string, active bool) (*User, error)
	Delete(context stdctx.Context, userID string) error

	List(context stdctx.Context, offset, limit int) ([]*User, int64, error)
}

/*
SessionRepository defines persistence operations for refresh-token sessions.

Delete is conditional on BOTH the user and the token hash so that rotation
is a single atomic operation: whichever concurrent request deletes the
record wins the rotation, the loser observes a miss.
*/
type SessionRepository interface {
	Insert(context stdctx.Context, session *Session) error
	FindByTokenHash(context stdctx.Context, tokenHash string) (*Session, error)
	Delete(context stdctx.Context, userID, tokenHash string) (bool, error)
	DeleteByUser(context stdctx.Context, userID string) error
	CountByUser(context stdctx.Context, userID string) (int64, error)
	DeleteOldestByUser(context stdctx.Context, userID string, count int) error
	DeleteExpired(context stdctx.Context, olderThan time.Time) (int64, error)
}
