// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
//
// The set is closed: every authorization decision goes through [UserRole.AtLeast],
// so a role outside this set can never satisfy a check by accident.
type UserRole string

const (
	// Unrestricted system access
	RoleAdmin UserRole = "admin"

	// Can manage community content and moderate comments/users
	RoleModerator UserRole = "moderator"

	// Default role for standard registered users
	RoleMember UserRole = "member"
)

// ParseRole maps a raw string onto the closed role set.
// Unknown values report false.
func ParseRole(raw string) (UserRole, bool) {
	switch UserRole(raw) {
	case RoleAdmin, RoleModerator, RoleMember:
		return UserRole(raw), true
	default:
		return "", false
	}
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {

	// Linear scale (10-30) allows for future intermediate roles
	switch r {
	case RoleAdmin:
		return 30
	case RoleModerator:
		return 20
	case RoleMember:
		return 10
	default:
		return 0
	}
}
