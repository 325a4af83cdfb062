// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package sec

// Principal is the verified identity snapshot attached to a request context
// by the Protect middleware.
//
// # Why not raw JWT claims?
//
// The middleware re-loads the account on every protected request to enforce
// the password-changed invalidation rule, so the context can carry the
// database truth (current role, current email) instead of whatever was
// embedded in the token at issuance time.
type Principal struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
}
