// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package account_test

import (
	stdctx "context"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breachlab/breachlab/internal/auth"
	"github.com/breachlab/breachlab/internal/platform/apperr"
	"github.com/breachlab/breachlab/internal/platform/sec"
	"github.com/breachlab/breachlab/internal/users/account"
	"github.com/breachlab/breachlab/pkg/pagination"
)

// # Test Doubles
//
// Minimal in-memory repositories: only the operations the account service
// reaches are meaningful, the rest satisfy the interfaces.

type stubUserRepo struct {
	users map[string]*auth.User
}

func newStubUserRepo(users ...*auth.User) *stubUserRepo {
	repo := &stubUserRepo{users: make(map[string]*auth.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (repo *stubUserRepo) Create(_ stdctx.Context, user *auth.User) error {
	repo.users[user.ID] = user
	return nil
}

func (repo *stubUserRepo) FindByID(_ stdctx.Context, userID string) (*auth.User, error) {
	user, found := repo.users[userID]
	if !found {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

func (repo *stubUserRepo) FindByEmail(_ stdctx.Context, _ string) (*auth.User, error) {
	return nil, apperr.NotFound("User")
}

func (repo *stubUserRepo) FindByUsername(_ stdctx.Context, _ string) (*auth.User, error) {
	return nil, apperr.NotFound("User")
}

func (repo *stubUserRepo) FindByResetHash(_ stdctx.Context, _ string) (*auth.User, error) {
	return nil, apperr.NotFound("User")
}

func (repo *stubUserRepo) UpdateProfile(_ stdctx.Context, userID, displayName, bio string) (*auth.User, error) {
	user, found := repo.users[userID]
	if !found {
		return nil, apperr.NotFound("User")
	}
	user.DisplayName = displayName
	user.Bio = bio
	return user, nil
}

func (repo *stubUserRepo) UpdatePassword(_ stdctx.Context, _, _ string, _ time.Time) error {
	return nil
}

func (repo *stubUserRepo) SetLastLogin(_ stdctx.Context, _ string, _ time.Time) error {
	return nil
}

func (repo *stubUserRepo) SetResetSecret(_ stdctx.Context, _, _ string, _ time.Time) error {
	return nil
}

func (repo *stubUserRepo) ClearResetSecret(_ stdctx.Context, _ string) error {
	return nil
}

func (repo *stubUserRepo) SetRole(_ stdctx.Context, userID string, role sec.UserRole) (*auth.User, error) {
	user, found := repo.users[userID]
	if !found {
		return nil, apperr.NotFound("User")
	}
	user.Role = role
	return user, nil
}

func (repo *stubUserRepo) SetActive(_ stdctx.Context, userID string, active bool) (*auth.User, error) {
	user, found := repo.users[userID]
	if !found {
		return nil, apperr.NotFound("User")
	}
	user.IsActive = active
	return user, nil
}

func (repo *stubUserRepo) Delete(_ stdctx.Context, userID string) error {
	delete(repo.users, userID)
	return nil
}

func (repo *stubUserRepo) List(_ stdctx.Context, offset, limit int) ([]*auth.User, int64, error) {
	all := make([]*auth.User, 0, len(repo.users))
	for _, user := range repo.users {
		all = append(all, user)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := int64(len(all))
	if offset >= len(all) {
		return []*auth.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

type stubSessionRepo struct {
	revokedUsers []string
}

func (repo *stubSessionRepo) Insert(_ stdctx.Context, _ *auth.Session) error { return nil }

func (repo *stubSessionRepo) FindByTokenHash(_ stdctx.Context, _ string) (*auth.Session, error) {
	return nil, auth.ErrSessionNotFound
}

func (repo *stubSessionRepo) Delete(_ stdctx.Context, _, _ string) (bool, error) {
	return false, nil
}

func (repo *stubSessionRepo) DeleteByUser(_ stdctx.Context, userID string) error {
	repo.revokedUsers = append(repo.revokedUsers, userID)
	return nil
}

func (repo *stubSessionRepo) CountByUser(_ stdctx.Context, _ string) (int64, error) {
	return 0, nil
}

func (repo *stubSessionRepo) DeleteOldestByUser(_ stdctx.Context, _ string, _ int) error {
	return nil
}

func (repo *stubSessionRepo) DeleteExpired(_ stdctx.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func member(id string) *auth.User {
	return &auth.User{ID: id, Username: "user_" + id, Role: sec.RoleMember, IsActive: true}
}

func adminPrincipal(id string) *sec.Principal {
	return &sec.Principal{ID: id, Role: sec.RoleAdmin}
}

/*
TestService_UpdateProfile verifies the profile write path.
*/
func TestService_UpdateProfile(t *testing.T) {
	users := newStubUserRepo(member("u1"))
	service := account.NewService(users, auth.NewLedger(&stubSessionRepo{}))

	user, err := service.UpdateProfile(stdctx.Background(), "u1", account.UpdateProfileInput{
		DisplayName: "Alice",
		Bio:         "red team",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.Equal(t, "red team", user.Bio)
}

/*
TestService_Deactivate verifies the soft delete closes the account and
revokes its sessions.
*/
func TestService_Deactivate(t *testing.T) {
	users := newStubUserRepo(member("u1"))
	sessions := &stubSessionRepo{}
	service := account.NewService(users, auth.NewLedger(sessions))

	require.NoError(t, service.Deactivate(stdctx.Background(), "u1"))

	user, err := users.FindByID(stdctx.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.Equal(t, []string{"u1"}, sessions.revokedUsers)
}

/*
TestService_List verifies pagination arithmetic over the repository.
*/
func TestService_List(t *testing.T) {
	users := newStubUserRepo(member("u1"), member("u2"), member("u3"))
	service := account.NewService(users, auth.NewLedger(&stubSessionRepo{}))

	page, meta, err := service.List(stdctx.Background(), pagination.Params{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.Equal(t, 3, meta.Total)
	assert.Equal(t, 2, meta.TotalPages)
	assert.Equal(t, 2, meta.Page)
}

/*
TestService_ChangeRole verifies the role write plus the self-change guard.
*/
func TestService_ChangeRole(t *testing.T) {
	users := newStubUserRepo(member("u1"), member("admin-1"))
	service := account.NewService(users, auth.NewLedger(&stubSessionRepo{}))
	actor := adminPrincipal("admin-1")

	user, err := service.ChangeRole(stdctx.Background(), actor, "u1", sec.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleModerator, user.Role)

	_, err = service.ChangeRole(stdctx.Background(), actor, "admin-1", sec.RoleMember)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusForbidden, appError.HTTPStatus)
}

/*
TestService_SetStatus verifies that disabling another account revokes its
sessions while enabling does not, and that self-targeting is rejected.
*/
func TestService_SetStatus(t *testing.T) {
	users := newStubUserRepo(member("u1"), member("admin-1"))
	sessions := &stubSessionRepo{}
	service := account.NewService(users, auth.NewLedger(sessions))
	actor := adminPrincipal("admin-1")

	user, err := service.SetStatus(stdctx.Background(), actor, "u1", false)
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.Equal(t, []string{"u1"}, sessions.revokedUsers)

	user, err = service.SetStatus(stdctx.Background(), actor, "u1", true)
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.Len(t, sessions.revokedUsers, 1, "re-enabling must not revoke again")

	_, err = service.SetStatus(stdctx.Background(), actor, "admin-1", false)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusForbidden, appError.HTTPStatus)
}
