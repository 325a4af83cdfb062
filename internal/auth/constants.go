// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package auth

import "time"

// # Authentication Constraints

const (
	// MaxSessionsPerUser caps the number of live refresh tokens per account.
	// Recording one more evicts the oldest entries.
	MaxSessionsPerUser = 5

	// ResetSecretTTL is the duration a password reset secret remains valid.
	// Short-lived (10 minutes) because it is a full account-takeover credential.
	ResetSecretTTL = 10 * time.Minute

	// ResetSecretLength is the byte length of the random reset secret.
	ResetSecretLength = 32

	// PasswordChangeSkew is subtracted from the password-changed timestamp so
	// that tokens minted in the same instant as the change are not spuriously
	// invalidated by clock/storage ordering.
	PasswordChangeSkew = 1 * time.Second

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8

	// MaxLoginFailures is how many failed logins a (email, IP) pair gets
	// inside [LoginFailureWindow] before the throttle locks it out.
	MaxLoginFailures = 10

	// LoginFailureWindow bounds both the failure counter and the lockout.
	LoginFailureWindow = 15 * time.Minute
)
