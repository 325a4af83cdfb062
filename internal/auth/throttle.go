// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package auth

import (
	stdctx "context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/breachlab/breachlab/internal/platform/apperr"
	"github.com/breachlab/breachlab/internal/platform/constants"
)

// LoginGuard throttles credential-guessing against a single account.
//
// RecordFailure and Reset return nothing: bookkeeping failures must never
// turn a login attempt into an error.
type LoginGuard interface {
	Check(context stdctx.Context, email, clientIP string) error
	RecordFailure(context stdctx.Context, email, clientIP string)
	Reset(context stdctx.Context, email, clientIP string)
}

/*
LoginThrottle is the Redis-backed [LoginGuard].

Failures are counted per (email, client IP) pair in a fixed window, so a
distributed guesser burns a lockout per IP while the legitimate owner on
their own IP stays unaffected by someone else's attack.

# Availability

The throttle fails OPEN: if Redis is unreachable, logins proceed and the
outage is logged. Locking every user out because a cache died is a worse
failure mode than briefly losing brute-force protection.
*/
type LoginThrottle struct {
	client *redis.Client
	logger *slog.Logger
}

// NewLoginThrottle creates a throttle backed by the given Redis client.
func NewLoginThrottle(client *redis.Client, logger *slog.Logger) *LoginThrottle {
	return &LoginThrottle{client: client, logger: logger}
}

// Check returns a RateLimited error when the pair has exhausted its
// [MaxLoginFailures] budget for the current window.
func (throttle *LoginThrottle) Check(context stdctx.Context, email, clientIP string) error {
	key := throttle.key(email, clientIP)

	failures, err := throttle.client.Get(context, key).Int()
	if err != nil {
		if err != redis.Nil {
			throttle.logger.Warn("login_throttle_unavailable", slog.String("error", err.Error()))
		}
		return nil
	}

	if failures < MaxLoginFailures {
		return nil
	}

	retryAfter := LoginFailureWindow
	if ttl, err := throttle.client.TTL(context, key).Result(); err == nil && ttl > 0 {
		retryAfter = ttl
	}

	return apperr.RateLimited(int(retryAfter.Seconds()))
}

// RecordFailure bumps the failure counter, starting the window on the first miss.
func (throttle *LoginThrottle) RecordFailure(context stdctx.Context, email, clientIP string) {
	key := throttle.key(email, clientIP)

	failures, err := throttle.client.Incr(context, key).Result()
	if err != nil {
		throttle.logger.Warn("login_throttle_unavailable", slog.String("error", err.Error()))
		return
	}

	// First failure opens the window; later ones ride on it.
	if failures == 1 {
		if err := throttle.client.Expire(context, key, LoginFailureWindow).Err(); err != nil {
			throttle.logger.Warn("login_throttle_unavailable", slog.String("error", err.Error()))
		}
	}
}

// Reset clears the failure counter after a successful login.
func (throttle *LoginThrottle) Reset(context stdctx.Context, email, clientIP string) {
	if err := throttle.client.Del(context, throttle.key(email, clientIP)).Err(); err != nil {
		throttle.logger.Warn("login_throttle_unavailable", slog.String("error", err.Error()))
	}
}

func (throttle *LoginThrottle) key(email, clientIP string) string {
	return fmt.Sprintf("%s%s:%s", constants.RedisPrefixLoginFailures, email, clientIP)
}

var _ LoginGuard = (*LoginThrottle)(nil)
