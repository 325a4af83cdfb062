// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

/*
Package normalize canonicalizes user-supplied identifiers before they are
stored or compared.

Uniqueness of usernames and emails is enforced on the normalized form, so
every write and every lookup must pass through this package. Otherwise
"Admin" and "admin" would register as two different accounts while looking
identical everywhere in the UI.
*/
package normalize

import (
	"errors"
	"strings"

	"golang.org/x/text/secure/precis"
)

// ErrEmptyUsername rejects usernames that are empty after trimming.
// PRECIS itself passes the empty string through, but RFC 8265 requires at
// least one character.
var ErrEmptyUsername = errors.New("normalize: username must not be empty")

// Email normalizes an email address for storage and comparison.
//
// The local part of an address is case-sensitive per RFC 5321, but no real
// mail provider treats it that way. Lowercasing the whole address is the
// industry-standard trade-off.
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Username canonicalizes a username using the PRECIS UsernameCaseMapped
// profile (RFC 8265).
//
// # Why PRECIS
//
// Plain ToLower is not enough for Unicode identifiers: visually identical
// strings can differ in code points, and some characters are outright
// disallowed in identifiers. The profile applies width mapping, case folding,
// Unicode normalization, and the identifier character rules in one pass.
func Username(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyUsername
	}
	return precis.UsernameCaseMapped.String(trimmed)
}
