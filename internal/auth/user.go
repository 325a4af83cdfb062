// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, Session) and logic for
authentication, authorization, and account lifecycle: registration, login,
refresh-token rotation, password recovery, and the resolution step behind
the route-protection middleware.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no
transport dependencies and encapsulate all business rules related to
user identity.
*/
package auth

import (
	"time"

	"github.com/breachlab/breachlab/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the BreachLab platform.
//
// # Security
//
// The password hash, the reset-secret bookkeeping, and the password-changed
// timestamp are never serialized to clients.
type User struct {
	ID           string       `bson:"_id" json:"id"`
	Username     string       `bson:"username" json:"username"`
	Email        string       `bson:"email" json:"email"`
	PasswordHash string       `bson:"password_hash" json:"-"`
	DisplayName  string       `bson:"display_name" json:"display_name"`
	Bio          string       `bson:"bio,omitempty" json:"bio,omitempty"`
	Role         sec.UserRole `bson:"role" json:"role"`
	IsActive     bool         `bson:"is_active" json:"is_active"`

	// PasswordChangedAt invalidates access tokens issued strictly before it.
	PasswordChangedAt time.Time `bson:"password_changed_at" json:"-"`

	// At most one live reset secret exists per account; a reissue overwrites it.
	ResetSecretHash      string     `bson:"reset_secret_hash,omitempty" json:"-"`
	ResetSecretExpiresAt *time.Time `bson:"reset_secret_expires_at,omitempty" json:"-"`

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// PasswordChangedAfter reports whether the password was changed strictly
// after the given token-issuance time.
func (user *User) PasswordChangedAfter(issuedAt time.Time) bool {
	return user.PasswordChangedAt.After(issuedAt)
}

// Principal builds the context-attachable identity snapshot for this user.
func (user *User) Principal() *sec.Principal {
	return &sec.Principal{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
}

// Session represents one recorded refresh token.
//
// Sessions live in their own collection, keyed by token hash, so that
// rotation and revocation are single atomic document operations instead of
// read-modify-write cycles on the user document.
type Session struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	TokenHash string    `bson:"token_hash" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername           = "username"
	FieldEmail              = "email"
	FieldPassword           = "password"
	FieldPasswordConfirm    = "password_confirm"
	FieldDisplayName        = "display_name"
	FieldToken              = "token"
	FieldCurrentPassword    = "current_password"
	FieldNewPassword        = "new_password"
	FieldNewPasswordConfirm = "new_password_confirm"
	FieldAccessToken        = "access_token"
	FieldTokenType          = "token_type"
	FieldExpiresIn          = "expires_in"
	FieldUser               = "user"
	FieldRole               = "role"
)
