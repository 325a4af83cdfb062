// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package auth

import (
	stdctx "context"
	"errors"
	"log/slog"
	"time"

	"github.com/breachlab/breachlab/internal/notify"
	"github.com/breachlab/breachlab/internal/platform/apperr"
	"github.com/breachlab/breachlab/internal/platform/ctxutil"
	"github.com/breachlab/breachlab/internal/platform/sec"
	"github.com/breachlab/breachlab/pkg/normalize"
	"github.com/breachlab/breachlab/pkg/uuid"
)

// # Service Dependencies

// TokenProvider mints and verifies the JWT pairs the service hands out.
// Satisfied by [sec.TokenService]; an interface so tests can substitute
// deterministic tokens.
type TokenProvider interface {
	GenerateAccessToken(userID string) (string, time.Time, error)
	GenerateRefreshToken(userID string) (string, time.Time, error)
	Verify(tokenString string, kind sec.TokenKind) (*sec.AuthClaims, error)
}

/*
Service is the authentication gateway: the single entry point every
credential operation flows through.

It composes the credential store, the session ledger, the reset manager,
the token provider, and the login throttle, and owns the orchestration
rules between them. HTTP handlers above it only translate; storage below
it only persists.
*/
type Service struct {
	users  UserRepository
	ledger *Ledger
	reset  *ResetManager
	tokens TokenProvider
	hasher *sec.PasswordHasher
	guard  LoginGuard
	mailer notify.Sender
}

// NewService wires the authentication gateway.
func NewService(
	users UserRepository,
	ledger *Ledger,
	reset *ResetManager,
	tokens TokenProvider,
	hasher *sec.PasswordHasher,
	guard LoginGuard,
	mailer notify.Sender,
) *Service {
	return &Service{
		users:  users,
		ledger: ledger,
		reset:  reset,
		tokens: tokens,
		hasher: hasher,
		guard:  guard,
		mailer: mailer,
	}
}

// # Inputs & Outputs

// RegisterInput carries the registration payload, shape-validated by the handler.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// LoginInput carries the login payload plus the client IP for throttling.
type LoginInput struct {
	Email    string
	Password string
	ClientIP string
}

// SessionTokens bundles a freshly issued token pair with its owner.
type SessionTokens struct {
	User             *User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// # Account Lifecycle

/*
Register creates a new identity and signs it in.

# Flow
 1. Canonicalize username and email.
 2. Pre-check uniqueness for friendly field-level errors; the unique
    indexes remain the real invariant under races.
 3. Hash the password, persist the identity with the member role.
 4. Issue a session exactly as Login does.
*/
func (service *Service) Register(context stdctx.Context, input RegisterInput) (*SessionTokens, error) {
	username, err := normalize.Username(input.Username)
	if err != nil {
		return nil, apperr.ValidationError("Username contains disallowed characters",
			apperr.FieldError{Field: FieldUsername, Message: "contains disallowed characters"})
	}
	email := normalize.Email(input.Email)

	if _, err := service.users.FindByUsername(context, username); err == nil {
		return nil, apperr.ValidationError("Username is already taken",
			apperr.FieldError{Field: FieldUsername, Message: "already taken"})
	}
	if _, err := service.users.FindByEmail(context, email); err == nil {
		return nil, apperr.ValidationError("Email is already registered",
			apperr.FieldError{Field: FieldEmail, Message: "already registered"})
	}

	passwordHash, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	currentTime := time.Now().UTC()
	user := &User{
		ID:           uuid.Must(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  input.DisplayName,
		Role:         sec.RoleMember,
		IsActive:     true,
		// Backdated by the skew so the tokens minted below stay valid.
		PasswordChangedAt: currentTime.Add(-PasswordChangeSkew),
		CreatedAt:         currentTime,
		UpdatedAt:         currentTime,
	}

	if err := service.users.Create(context, user); err != nil {
		return nil, err
	}

	return service.issueSession(context, user)
}

/*
Login verifies credentials and issues a session.

# Security

The response never distinguishes "no such account" from "wrong password":
both fail with the same message after a throttle hit is recorded. A
deactivated account rejects with 403 only AFTER the password verified, so
the disabled state leaks nothing to guessers.
*/
func (service *Service) Login(context stdctx.Context, input LoginInput) (*SessionTokens, error) {
	email := normalize.Email(input.Email)

	if err := service.guard.Check(context, email, input.ClientIP); err != nil {
		return nil, err
	}

	user, err := service.users.FindByEmail(context, email)
	if err != nil {
		if apperr.IsAppError(err) {
			service.guard.RecordFailure(context, email, input.ClientIP)
			return nil, apperr.Unauthorized("Incorrect email or password")
		}
		return nil, err
	}

	if !service.hasher.Compare(input.Password, user.PasswordHash) {
		service.guard.RecordFailure(context, email, input.ClientIP)
		return nil, apperr.Unauthorized("Incorrect email or password")
	}

	if !user.IsActive {
		return nil, apperr.Forbidden("Your account has been deactivated")
	}

	service.guard.Reset(context, email, input.ClientIP)

	// Last-login is bookkeeping; a failed stamp must not fail the login.
	currentTime := time.Now().UTC()
	if err := service.users.SetLastLogin(context, user.ID, currentTime); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "last_login_stamp_failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	} else {
		user.LastLoginAt = &currentTime
	}

	return service.issueSession(context, user)
}

// Logout revokes the presented refresh token. Idempotent by design: an
// absent, garbled, or already-revoked token still logs out successfully,
// because the handler clears the cookies either way.
func (service *Service) Logout(context stdctx.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := service.tokens.Verify(refreshToken, sec.TokenKindRefresh)
	if err != nil {
		return nil
	}

	return service.ledger.Revoke(context, claims.UserID, refreshToken)
}

/*
Refresh exchanges a live refresh token for a brand-new pair.

# Flow
 1. Structural verification (signature, expiry, refresh kind).
 2. Ledger membership check; a miss is treated as token REUSE, logged as a
    security event, and rejected.
 3. Account re-check: it must still exist and be active.
 4. Atomic rotation: the old record is replaced by the successor, then a
    new access token is minted.
*/
func (service *Service) Refresh(context stdctx.Context, refreshToken string) (*SessionTokens, error) {
	if refreshToken == "" {
		return nil, apperr.Unauthorized("Missing refresh token")
	}

	claims, err := service.tokens.Verify(refreshToken, sec.TokenKindRefresh)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	valid, err := service.ledger.IsValid(context, claims.UserID, refreshToken)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !valid {
		service.logSecurityEvent(context, "refresh_token_reuse_detected", claims.UserID)
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	user, err := service.users.FindByID(context, claims.UserID)
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, apperr.Unauthorized("The user belonging to this token no longer exists")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("Your account has been deactivated")
	}

	newRefreshToken, refreshExpiresAt, err := service.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if err := service.ledger.Rotate(context, user.ID, refreshToken, newRefreshToken, refreshExpiresAt); err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			// Lost a rotation race: someone else just spent this token.
			service.logSecurityEvent(context, "refresh_token_reuse_detected", user.ID)
			return nil, apperr.Unauthorized("Invalid or expired refresh token")
		}
		return nil, apperr.Internal(err)
	}

	accessToken, accessExpiresAt, err := service.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &SessionTokens{
		User:             user,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     newRefreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Me returns the authenticated user's own record.
func (service *Service) Me(context stdctx.Context, userID string) (*User, error) {
	return service.users.FindByID(context, userID)
}

// # Password Recovery

/*
ForgotPassword starts the recovery flow for the given email.

An unknown email is treated as success: the handler answers with the same
neutral message either way, so this endpoint cannot be used to probe which
addresses hold accounts.

If delivery fails, the just-issued secret is cleared again; a secret that
never reached its owner must not stay redeemable.
*/
func (service *Service) ForgotPassword(context stdctx.Context, email string) error {
	user, err := service.users.FindByEmail(context, normalize.Email(email))
	if err != nil {
		if apperr.IsAppError(err) {
			return nil
		}
		return err
	}

	secret, err := service.reset.Issue(context, user)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := service.mailer.SendPasswordReset(context, user.Email, secret); err != nil {
		_ = service.users.ClearResetSecret(context, user.ID)
		return apperr.Internal(err)
	}

	return nil
}

// ResetPassword redeems a reset secret, installs the new password, and
// signs the user in exactly as Login does. The secret is consumed even
// when it turns out to be expired.
func (service *Service) ResetPassword(context stdctx.Context, resetSecret, newPassword string) (*SessionTokens, error) {
	user, err := service.reset.Consume(context, resetSecret)
	if err != nil {
		return nil, err
	}

	if err := service.installPassword(context, user, newPassword); err != nil {
		return nil, err
	}

	return service.issueSession(context, user)
}

/*
UpdatePassword rotates the password of an authenticated user.

Requires the current password even though the caller holds a valid access
token: a hijacked session must not be enough to change the credential.

The session the request rode in on is revoked and replaced; OTHER sessions
stay alive until their tokens expire or the user logs out everywhere.
*/
func (service *Service) UpdatePassword(context stdctx.Context, userID, currentPassword, newPassword, presentedRefreshToken string) (*SessionTokens, error) {
	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	if !service.hasher.Compare(currentPassword, user.PasswordHash) {
		return nil, apperr.Unauthorized("Your current password is incorrect")
	}

	if err := service.installPassword(context, user, newPassword); err != nil {
		return nil, err
	}

	if presentedRefreshToken != "" {
		_ = service.ledger.Revoke(context, userID, presentedRefreshToken)
	}

	return service.issueSession(context, user)
}

// RevokeAllSessions logs the user out everywhere by emptying their ledger.
func (service *Service) RevokeAllSessions(context stdctx.Context, userID string) error {
	return service.ledger.RevokeAll(context, userID)
}

// # Middleware Resolution

// ResolvePrincipal is the stateful half of access-token validation, called
// by the Protect middleware for every authenticated request: the account
// must still exist, and tokens minted before the last password change die.
func (service *Service) ResolvePrincipal(context stdctx.Context, userID string, issuedAt time.Time) (*sec.Principal, error) {
	user, err := service.users.FindByID(context, userID)
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, apperr.Unauthorized("The user belonging to this token no longer exists")
		}
		return nil, err
	}

	if user.PasswordChangedAfter(issuedAt) {
		return nil, apperr.Unauthorized("Password changed recently, please log in again")
	}

	return user.Principal(), nil
}

// # Internal Helpers

// issueSession mints an access/refresh pair and records the refresh token.
func (service *Service) issueSession(context stdctx.Context, user *User) (*SessionTokens, error) {
	accessToken, accessExpiresAt, err := service.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	refreshToken, refreshExpiresAt, err := service.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if err := service.ledger.Record(context, user.ID, refreshToken, refreshExpiresAt); err != nil {
		return nil, apperr.Internal(err)
	}

	return &SessionTokens{
		User:             user,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// installPassword hashes and persists a new password, stamping the change
// time with the skew so the session issued right after stays valid.
func (service *Service) installPassword(context stdctx.Context, user *User, newPassword string) error {
	passwordHash, err := service.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}

	changedAt := time.Now().UTC().Add(-PasswordChangeSkew)
	if err := service.users.UpdatePassword(context, user.ID, passwordHash, changedAt); err != nil {
		return err
	}

	user.PasswordHash = passwordHash
	user.PasswordChangedAt = changedAt
	return nil
}

func (service *Service) logSecurityEvent(context stdctx.Context, event, userID string) {
	ctxutil.GetLogger(context).WarnContext(context, event,
		slog.String("user_id", userID),
	)
}
