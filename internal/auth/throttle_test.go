// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package auth_test

import (
	stdctx "context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breachlab/breachlab/internal/auth"
	"github.com/breachlab/breachlab/internal/platform/apperr"
)

func newTestThrottle(t *testing.T) (*auth.LoginThrottle, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return auth.NewLoginThrottle(client, slog.Default()), server
}

/*
TestLoginThrottle_LockoutAfterBudget verifies that the failure budget locks
the (email, IP) pair out and that success clears the counter.
*/
func TestLoginThrottle_LockoutAfterBudget(t *testing.T) {
	throttle, _ := newTestThrottle(t)
	ctx := stdctx.Background()

	for i := 0; i < auth.MaxLoginFailures-1; i++ {
		throttle.RecordFailure(ctx, "alice@example.com", "10.0.0.1")
		assert.NoError(t, throttle.Check(ctx, "alice@example.com", "10.0.0.1"))
	}

	// The final failure exhausts the budget.
	throttle.RecordFailure(ctx, "alice@example.com", "10.0.0.1")

	err := throttle.Check(ctx, "alice@example.com", "10.0.0.1")
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusTooManyRequests, appError.HTTPStatus)

	// Success resets the pair.
	throttle.Reset(ctx, "alice@example.com", "10.0.0.1")
	assert.NoError(t, throttle.Check(ctx, "alice@example.com", "10.0.0.1"))
}

/*
TestLoginThrottle_PairIsolation verifies that counters are scoped to the
(email, IP) pair: a different IP or a different account is unaffected.
*/
func TestLoginThrottle_PairIsolation(t *testing.T) {
	throttle, _ := newTestThrottle(t)
	ctx := stdctx.Background()

	for i := 0; i < auth.MaxLoginFailures; i++ {
		throttle.RecordFailure(ctx, "alice@example.com", "10.0.0.1")
	}

	assert.Error(t, throttle.Check(ctx, "alice@example.com", "10.0.0.1"))
	assert.NoError(t, throttle.Check(ctx, "alice@example.com", "10.0.0.2"))
	assert.NoError(t, throttle.Check(ctx, "bob@example.com", "10.0.0.1"))
}

/*
TestLoginThrottle_WindowExpiry verifies that the lockout ends when the
window TTL elapses.
*/
func TestLoginThrottle_WindowExpiry(t *testing.T) {
	throttle, server := newTestThrottle(t)
	ctx := stdctx.Background()

	for i := 0; i < auth.MaxLoginFailures; i++ {
		throttle.RecordFailure(ctx, "alice@example.com", "10.0.0.1")
	}
	require.Error(t, throttle.Check(ctx, "alice@example.com", "10.0.0.1"))

	server.FastForward(auth.LoginFailureWindow)

	assert.NoError(t, throttle.Check(ctx, "alice@example.com", "10.0.0.1"))
}

/*
TestLoginThrottle_FailsOpen verifies that a dead Redis lets logins proceed.
*/
func TestLoginThrottle_FailsOpen(t *testing.T) {
	throttle, server := newTestThrottle(t)
	ctx := stdctx.Background()

	server.Close()

	assert.NoError(t, throttle.Check(ctx, "alice@example.com", "10.0.0.1"))
	throttle.RecordFailure(ctx, "alice@example.com", "10.0.0.1")
	throttle.Reset(ctx, "alice@example.com", "10.0.0.1")
}
