// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package auth

import (
	stdctx "context"
	"time"

	"github.com/breachlab/breachlab/internal/platform/apperr"
	"github.com/breachlab/breachlab/internal/platform/sec"
)

// ErrResetInvalid covers every reset-secret rejection: unknown, expired, or
// already used. One error for all three so responses never reveal which.
var ErrResetInvalid = apperr.ValidationError("Reset token is invalid or has expired")

/*
ResetManager issues and redeems the out-of-band password recovery secrets.

# Lifecycle

A secret is minted as [ResetSecretLength] random bytes; only its SHA-256 hash
is stored on the identity together with a [ResetSecretTTL] deadline. The raw
secret travels to the user exactly once, via the delivery channel, and is
never persisted or logged. Each account holds at most one live secret.
*/
type ResetManager struct {
	users UserRepository
}

// NewResetManager creates a ResetManager backed by the given user repository.
func NewResetManager(users UserRepository) *ResetManager {
	return &ResetManager{users: users}
}

// Issue mints a new reset secret for the user, stores its hash and expiry,
// and returns the raw secret for delivery. A previously issued secret is
// overwritten.
func (manager *ResetManager) Issue(context stdctx.Context, user *User) (string, error) {
	secret, err := sec.GenerateSecureToken(ResetSecretLength)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().UTC().Add(ResetSecretTTL)
	if err := manager.users.SetResetSecret(context, user.ID, sec.HashToken(secret), expiresAt); err != nil {
		return "", err
	}

	return secret, nil
}

/*
Consume redeems a candidate secret and returns its owner.

The secret is single-use: redemption clears it. An expired secret is ALSO
cleared on the rejecting attempt, so a stale secret cannot linger as a
second redemption path.

# Returns
  - *User: The owning identity, on success.
  - error: [ErrResetInvalid] for unknown/expired secrets, storage errors otherwise.
*/
func (manager *ResetManager) Consume(context stdctx.Context, candidate string) (*User, error) {
	user, err := manager.users.FindByResetHash(context, sec.HashToken(candidate))
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, ErrResetInvalid
		}
		return nil, err
	}

	if user.ResetSecretExpiresAt == nil || time.Now().After(*user.ResetSecretExpiresAt) {
		_ = manager.users.ClearResetSecret(context, user.ID)
		return nil, ErrResetInvalid
	}

	if err := manager.users.ClearResetSecret(context, user.ID); err != nil {
		return nil, err
	}

	return user, nil
}
