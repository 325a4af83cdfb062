// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package auth

import (
	stdctx "context"
	"errors"
	"time"

	"github.com/breachlab/breachlab/internal/platform/sec"
	"github.com/breachlab/breachlab/pkg/uuid"
)

// ErrTokenNotFound is returned by [Ledger.Rotate] when the presented refresh
// token has no live record. Callers treat it as possible token reuse.
var ErrTokenNotFound = errors.New("auth: refresh token not recorded")

/*
Ledger is the server-side registry of live refresh tokens.

A refresh token is only honored while its hash is recorded here, which is
what makes logout and "log out everywhere" actually revoke: a structurally
valid JWT whose record is gone is dead.

# Storage

Only SHA-256 hashes of tokens are stored. A database leak therefore yields
nothing replayable.
*/
type Ledger struct {
	sessions SessionRepository
}

// NewLedger creates a Ledger backed by the given session repository.
func NewLedger(sessions SessionRepository) *Ledger {
	return &Ledger{sessions: sessions}
}

/*
Record registers a freshly minted refresh token for the user.

Enforces the per-user session cap: when the user is at [MaxSessionsPerUser],
the oldest sessions are evicted first so the newest login always wins a slot.

# Parameters
  - context: Request-scoped context.
  - userID: Owner of the token.
  - refreshToken: The raw token; only its hash is persisted.
  - expiresAt: The token's own expiry, mirrored for sweeping.
*/
func (ledger *Ledger) Record(context stdctx.Context, userID, refreshToken string, expiresAt time.Time) error {
	count, err := ledger.sessions.CountByUser(context, userID)
	if err != nil {
		return err
	}

	if overflow := int(count) - MaxSessionsPerUser + 1; overflow > 0 {
		if err := ledger.sessions.DeleteOldestByUser(context, userID, overflow); err != nil {
			return err
		}
	}

	return ledger.sessions.Insert(context, &Session{
		ID:        uuid.Must(),
		UserID:    userID,
		TokenHash: sec.HashToken(refreshToken),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	})
}

// IsValid reports whether the token is currently recorded for this user
// and not past its expiry. Storage failures are reported as errors, never
// silently treated as "invalid".
func (ledger *Ledger) IsValid(context stdctx.Context, userID, refreshToken string) (bool, error) {
	session, err := ledger.sessions.FindByTokenHash(context, sec.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	if session.UserID != userID {
		return false, nil
	}
	if time.Now().After(session.ExpiresAt) {
		return false, nil
	}

	return true, nil
}

/*
Rotate atomically replaces one recorded token with its successor.

The removal is a conditional single-document delete, so when two requests
race with the same old token exactly one rotation succeeds; the other gets
[ErrTokenNotFound], which the caller logs as a reuse signal.
*/
func (ledger *Ledger) Rotate(context stdctx.Context, userID, oldToken, newToken string, newExpiry time.Time) error {
	removed, err := ledger.sessions.Delete(context, userID, sec.HashToken(oldToken))
	if err != nil {
		return err
	}
	if !removed {
		return ErrTokenNotFound
	}

	return ledger.Record(context, userID, newToken, newExpiry)
}

// Revoke removes one recorded token. Revoking a token that is not recorded
// is a no-op: logout is idempotent.
func (ledger *Ledger) Revoke(context stdctx.Context, userID, refreshToken string) error {
	_, err := ledger.sessions.Delete(context, userID, sec.HashToken(refreshToken))
	return err
}

// RevokeAll removes every recorded token for the user ("log out everywhere").
func (ledger *Ledger) RevokeAll(context stdctx.Context, userID string) error {
	return ledger.sessions.DeleteByUser(context, userID)
}

// Sweep purges sessions whose expiry has passed and reports how many were
// removed. Run periodically; expired entries are already unusable, sweeping
// only reclaims storage.
func (ledger *Ledger) Sweep(context stdctx.Context) (int64, error) {
	return ledger.sessions.DeleteExpired(context, time.Now().UTC())
}
