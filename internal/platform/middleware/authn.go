// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

// Package middleware provides the HTTP middleware chain for the BreachLab API server.
//
// # Architecture
//
// Middleware intercepts incoming HTTP requests to apply global policies
// before they reach the domain handlers. This file covers AuthN/AuthZ:
// the Protect gate and the role check layered on top of it.
package middleware

import (
	stdctx "context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/breachlab/breachlab/internal/platform/apperr"
	"github.com/breachlab/breachlab/internal/platform/constants"
	"github.com/breachlab/breachlab/internal/platform/ctxutil"
	"github.com/breachlab/breachlab/internal/platform/respond"
	"github.com/breachlab/breachlab/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the sec package's
// concrete service, allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	Verify(tokenString string, kind sec.TokenKind) (*sec.AuthClaims, error)
}

// PrincipalResolver turns a verified claim into a living identity.
//
// The resolver is where the stateful half of token validation happens: the
// account must still exist, and tokens minted before the account's last
// password change must be rejected.
type PrincipalResolver interface {
	ResolvePrincipal(context stdctx.Context, userID string, issuedAt time.Time) (*sec.Principal, error)
}

// Protect blocks requests that do not carry a valid access token.
//
// # Flow
//  1. Extract the token: 'accessToken' cookie first, then 'Authorization: Bearer'.
//  2. If absent, abort with HTTP 401 Unauthorized.
//  3. Verify signature, expiry, and the access kind tag via [TokenVerifier].
//  4. Resolve the account via [PrincipalResolver] (existence + password-changed check).
//  5. Inject [*sec.Principal] into the request context for downstream use.
func Protect(verifier TokenVerifier, resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Token Extraction ───────────────────────────────────────────
			tokenString := extractAccessToken(request)
			if tokenString == "" {
				respond.Error(writer, request, apperr.Unauthorized("You are not logged in"))
				return
			}

			// ── 2. Stateless Verification ─────────────────────────────────────
			claims, err := verifier.Verify(tokenString, sec.TokenKindAccess)
			if err != nil {
				if errors.Is(err, sec.ErrExpiredToken) {
					respond.Error(writer, request, apperr.Unauthorized("Your session has expired, please log in again"))
					return
				}
				respond.Error(writer, request, apperr.Unauthorized("Invalid authentication token"))
				return
			}

			// ── 3. Stateful Resolution ────────────────────────────────────────
			principal, err := resolver.ResolvePrincipal(request.Context(), claims.UserID, claims.IssuedAt.Time)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithPrincipal(request.Context(), principal)

			// Re-bind the request logger so downstream entries carry the user.
			logger := ctxutil.GetLogger(ctx).With(slog.String("user_id", principal.ID))
			ctx = ctxutil.WithLogger(ctx, logger)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireRole blocks requests if the authenticated user doesn't have the required role.
//
// # Usage
//
// Must be registered in the router AFTER [Protect]: it is a pure check
// against the already-attached identity and never touches storage.
//
// # Flow
//  1. Check if [*sec.Principal] exists in context (implies AuthN).
//  2. Check if the role meets or exceeds the target using [sec.UserRole.AtLeast].
//  3. If insufficient, abort with HTTP 403 Forbidden.
func RequireRole(role sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			principal := ctxutil.GetPrincipal(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if principal == nil {
				respond.Error(writer, request, apperr.Unauthorized("You are not logged in"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !principal.Role.AtLeast(role) {
				respond.Error(writer, request, apperr.Forbidden("You do not have permission to perform this action"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// extractAccessToken pulls the access token from the request.
// The httpOnly cookie set by the auth handlers wins over the Bearer header.
func extractAccessToken(request *http.Request) string {
	if cookie, err := request.Cookie(constants.AccessTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := request.Header.Get(constants.HeaderAuthorization)
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return parts[1]
}
