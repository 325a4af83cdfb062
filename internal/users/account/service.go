// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

/*
Package account implements user account management on top of the auth core.

It covers the self-service profile surface (update, deactivate) and the
staff operations (listing, role changes, status toggles). Credential and
session logic stays in the auth package; this layer only orchestrates
identity records and, where required, session revocation.
*/
package account

import (
	stdctx "context"

	"github.com/breachlab/breachlab/internal/auth"
	"github.com/breachlab/breachlab/internal/platform/apperr"
	"github.com/breachlab/breachlab/internal/platform/sec"
	"github.com/breachlab/breachlab/pkg/pagination"
)

// Service orchestrates account management operations.
type Service struct {
	users  auth.UserRepository
	ledger *auth.Ledger
}

// NewService wires the account service.
func NewService(users auth.UserRepository, ledger *auth.Ledger) *Service {
	return &Service{users: users, ledger: ledger}
}

// UpdateProfileInput carries the self-service profile fields.
type UpdateProfileInput struct {
	DisplayName string
	Bio         string
}

// UpdateProfile overwrites the caller's display name and bio.
func (service *Service) UpdateProfile(context stdctx.Context, userID string, input UpdateProfileInput) (*auth.User, error) {
	return service.users.UpdateProfile(context, userID, input.DisplayName, input.Bio)
}

// Deactivate soft-deletes the caller's own account and revokes every
// session. The record stays for audit; only login is closed.
func (service *Service) Deactivate(context stdctx.Context, userID string) error {
	if _, err := service.users.SetActive(context, userID, false); err != nil {
		return err
	}
	return service.ledger.RevokeAll(context, userID)
}

// List returns one page of accounts plus pagination metadata. Staff only;
// the role gate lives in the router.
func (service *Service) List(context stdctx.Context, params pagination.Params) ([]*auth.User, pagination.Meta, error) {
	users, total, err := service.users.List(context, params.Offset(), params.Limit)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return users, pagination.NewMeta(params.Page, params.Limit, int(total)), nil
}

// ChangeRole moves a user onto another role in the closed set.
// Admins cannot change their own role: the last admin demoting themselves
// would leave the system without one.
func (service *Service) ChangeRole(context stdctx.Context, actor *sec.Principal, targetUserID string, role sec.UserRole) (*auth.User, error) {
	if actor.ID == targetUserID {
		return nil, apperr.Forbidden("You cannot change your own role")
	}
	return service.users.SetRole(context, targetUserID, role)
}

// SetStatus enables or disables another account. Disabling also revokes
// the target's sessions so the lockout is immediate, not next-refresh.
func (service *Service) SetStatus(context stdctx.Context, actor *sec.Principal, targetUserID string, active bool) (*auth.User, error) {
	if actor.ID == targetUserID {
		return nil, apperr.Forbidden("You cannot change your own account status")
	}

	user, err := service.users.SetActive(context, targetUserID, active)
	if err != nil {
		return nil, err
	}

	if !active {
		if err := service.ledger.RevokeAll(context, targetUserID); err != nil {
			return nil, err
		}
	}

	return user, nil
}
