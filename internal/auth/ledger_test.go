// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package auth_test

import (
	stdctx "context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breachlab/breachlab/internal/auth"
)

/*
TestLedger_RecordAndValidate verifies that a recorded token validates and an
unknown one does not.
*/
func TestLedger_RecordAndValidate(t *testing.T) {
	ctx := stdctx.Background()
	ledger := auth.NewLedger(newMemorySessionRepo())

	require.NoError(t, ledger.Record(ctx, "user-1", "token-a", time.Now().Add(time.Hour)))

	valid, err := ledger.IsValid(ctx, "user-1", "token-a")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = ledger.IsValid(ctx, "user-1", "token-unknown")
	require.NoError(t, err)
	assert.False(t, valid)

	// A recorded token is bound to its owner.
	valid, err = ledger.IsValid(ctx, "user-2", "token-a")
	require.NoError(t, err)
	assert.False(t, valid)
}

/*
TestLedger_SessionCapEvictsOldest verifies that recording past the per-user
cap evicts the oldest sessions first.
*/
func TestLedger_SessionCapEvictsOldest(t *testing.T) {
	ctx := stdctx.Background()
	sessions := newMemorySessionRepo()
	ledger := auth.NewLedger(sessions)

	expiry := time.Now().Add(time.Hour)
	for i := 0; i < auth.MaxSessionsPerUser+2; i++ {
		token := fmt.Sprintf("token-%d", i)
		require.NoError(t, ledger.Record(ctx, "user-1", token, expiry))
	}

	count, err := sessions.CountByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, auth.MaxSessionsPerUser, count)

	// The first two recorded tokens must be gone; the newest must survive.
	valid, err := ledger.IsValid(ctx, "user-1", "token-0")
	require.NoError(t, err)
	assert.False(t, valid)

	valid, err = ledger.IsValid(ctx, "user-1", "token-1")
	require.NoError(t, err)
	assert.False(t, valid)

	valid, err = ledger.IsValid(ctx, "user-1", fmt.Sprintf("token-%d", auth.MaxSessionsPerUser+1))
	require.NoError(t, err)
	assert.True(t, valid)
}

/*
TestLedger_Rotate verifies the replace-and-record semantics, including the
reuse signal when a spent token is presented again.
*/
func TestLedger_Rotate(t *testing.T) {
	ctx := stdctx.Background()
	ledger := auth.NewLedger(newMemorySessionRepo())

	expiry := time.Now().Add(time.Hour)
	require.NoError(t, ledger.Record(ctx, "user-1", "token-old", expiry))

	require.NoError(t, ledger.Rotate(ctx, "user-1", "token-old", "token-new", expiry))

	valid, err := ledger.IsValid(ctx, "user-1", "token-old")
	require.NoError(t, err)
	assert.False(t, valid, "spent token must not validate")

	valid, err = ledger.IsValid(ctx, "user-1", "token-new")
	require.NoError(t, err)
	assert.True(t, valid)

	// Spending the old token a second time is the reuse signal.
	err = ledger.Rotate(ctx, "user-1", "token-old", "token-newer", expiry)
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}

/*
TestLedger_RevokeIsIdempotent verifies that revoking an unknown token is a no-op.
*/
func TestLedger_RevokeIsIdempotent(t *testing.T) {
	ctx := stdctx.Background()
	ledger := auth.NewLedger(newMemorySessionRepo())

	require.NoError(t, ledger.Record(ctx, "user-1", "token-a", time.Now().Add(time.Hour)))

	require.NoError(t, ledger.Revoke(ctx, "user-1", "token-a"))
	require.NoError(t, ledger.Revoke(ctx, "user-1", "token-a"))
	require.NoError(t, ledger.Revoke(ctx, "user-1", "token-never-existed"))

	valid, err := ledger.IsValid(ctx, "user-1", "token-a")
	require.NoError(t, err)
	assert.False(t, valid)
}

/*
TestLedger_RevokeAll verifies that emptying the ledger kills every session of
one user and nobody else's.
*/
func TestLedger_RevokeAll(t *testing.T) {
	ctx := stdctx.Background()
	ledger := auth.NewLedger(newMemorySessionRepo())

	expiry := time.Now().Add(time.Hour)
	require.NoError(t, ledger.Record(ctx, "user-1", "token-a", expiry))
	require.NoError(t, ledger.Record(ctx, "user-1", "token-b", expiry))
	require.NoError(t, ledger.Record(ctx, "user-2", "token-c", expiry))

	require.NoError(t, ledger.RevokeAll(ctx, "user-1"))

	valid, _ := ledger.IsValid(ctx, "user-1", "token-a")
	assert.False(t, valid)
	valid, _ = ledger.IsValid(ctx, "user-1", "token-b")
	assert.False(t, valid)
	valid, _ = ledger.IsValid(ctx, "user-2", "token-c")
	assert.True(t, valid)
}

/*
TestLedger_Sweep verifies that only expired sessions are purged.
*/
func TestLedger_Sweep(t *testing.T) {
	ctx := stdctx.Background()
	ledger := auth.NewLedger(newMemorySessionRepo())

	require.NoError(t, ledger.Record(ctx, "user-1", "token-live", time.Now().Add(time.Hour)))
	require.NoError(t, ledger.Record(ctx, "user-1", "token-dead", time.Now().Add(-time.Minute)))

	removed, err := ledger.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	valid, err := ledger.IsValid(ctx, "user-1", "token-live")
	require.NoError(t, err)
	assert.True(t, valid)
}
