// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package auth_test

import (
	stdctx "context"
	"sort"
	"sync"
	"time"

	"github.com/breachlab/breachlab/internal/auth"
	"github.com/breachlab/breachlab/internal/platform/apperr"
	"github.com/breachlab/breachlab/internal/platform/sec"
)

// # In-Memory Repositories
//
// Deterministic stand-ins for the Mongo repositories, honoring the same
// error contracts, so the gateway and ledger can be tested without a
// database.

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*auth.User

	// setLastLoginErr, when set, is returned by SetLastLogin to simulate a
	// storage failure on the stamp.
	setLastLoginErr error
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*auth.User)}
}

func (repo *memoryUserRepo) Create(_ stdctx.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, existing := range repo.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return apperr.ValidationError("Username or email is already registered")
		}
	}

	clone := *user
	repo.users[user.ID] = &clone
	return nil
}

func (repo *memoryUserRepo) FindByID(_ stdctx.Context, userID string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, found := repo.users[userID]
	if !found {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (repo *memoryUserRepo) FindByEmail(_ stdctx.Context, email string) (*auth.User, error) {
	return repo.findBy(func(user *auth.User) bool { return user.Email == email })
}

func (repo *memoryUserRepo) FindByUsername(_ stdctx.Context, username string) (*auth.User, error) {
	return repo.findBy(func(user *auth.User) bool { return user.Username == username })
}

func (repo *memoryUserRepo) FindByResetHash(_ stdctx.Context, resetHash string) (*auth.User, error) {
	return repo.findBy(func(user *auth.User) bool {
		return user.ResetSecretHash != "" && user.ResetSecretHash == resetHash
	})
}

func (repo *memoryUserRepo) UpdateProfile(_ stdctx.Context, userID, displayName, bio string) (*auth.User, error) {
	return repo.mutate(userID, func(user *auth.User) {
		user.DisplayName = displayName
		user.Bio = bio
		user.UpdatedAt = time.Now().UTC()
	})
}

func (repo *memoryUserRepo) UpdatePassword(_ stdctx.Context, userID, passwordHash string, changedAt time.Time) error {
	_, err := repo.mutate(userID, func(user *auth.User) {
		user.PasswordHash = passwordHash
		user.PasswordChangedAt = changedAt
		user.ResetSecretHash = ""
		user.ResetSecretExpiresAt = nil
	})
	return err
}

func (repo *memoryUserRepo) SetLastLogin(_ stdctx.Context, userID string, loginAt time.Time) error {
	repo.mu.Lock()
	failure := repo.setLastLoginErr
	repo.mu.Unlock()
	if failure != nil {
		return failure
	}

	_, err := repo.mutate(userID, func(user *auth.User) {
		user.LastLoginAt = &loginAt
	})
	return err
}

func (repo *memoryUserRepo) SetResetSecret(_ stdctx.Context, userID, resetHash string, expiresAt time.Time) error {
	_, err := repo.mutate(userID, func(user *auth.User) {
		user.ResetSecretHash = resetHash
		user.ResetSecretExpiresAt = &expiresAt
	})
	return err
}

func (repo *memoryUserRepo) ClearResetSecret(_ stdctx.Context, userID string) error {
	_, err := repo.mutate(userID, func(user *auth.User) {
		user.ResetSecretHash = ""
		user.ResetSecretExpiresAt = nil
	})
	return err
}

func (repo *memoryUserRepo) SetRole(_ stdctx.Context, userID string, role sec.UserRole) (*auth.User, error) {
	return repo.mutate(userID, func(user *auth.User) { user.Role = role })
}

func (repo *memoryUserRepo) SetActive(_ stdctx.Context, userID string, active bool) (*auth.User, error) {
	return repo.mutate(userID, func(user *auth.User) { user.IsActive = active })
}

func (repo *memoryUserRepo) Delete(_ stdctx.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, found := repo.users[userID]; !found {
		return apperr.NotFound("User")
	}
	delete(repo.users, userID)
	return nil
}

func (repo *memoryUserRepo) List(_ stdctx.Context, offset, limit int) ([]*auth.User, int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	all := make([]*auth.User, 0, len(repo.users))
	for _, user := range repo.users {
		clone := *user
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

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

func (repo *memoryUserRepo) findBy(match func(*auth.User) bool) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, user := range repo.users {
		if match(user) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryUserRepo) mutate(userID string, apply func(*auth.User)) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, found := repo.users[userID]
	if !found {
		return nil, apperr.NotFound("User")
	}
	apply(user)
	clone := *user
	return &clone, nil
}

type sessionRecord struct {
	session auth.Session
	seq     int
}

type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*sessionRecord // keyed by token hash
	nextSeq  int
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]*sessionRecord)}
}

func (repo *memorySessionRepo) Insert(_ stdctx.Context, session *auth.Session) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.nextSeq++
	repo.sessions[session.TokenHash] = &sessionRecord{session: *session, seq: repo.nextSeq}
	return nil
}

func (repo *memorySessionRepo) FindByTokenHash(_ stdctx.Context, tokenHash string) (*auth.Session, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	record, found := repo.sessions[tokenHash]
	if !found {
		return nil, auth.ErrSessionNotFound
	}
	clone := record.session
	return &clone, nil
}

func (repo *memorySessionRepo) Delete(_ stdctx.Context, userID, tokenHash string) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	record, found := repo.sessions[tokenHash]
	if !found || record.session.UserID != userID {
		return false, nil
	}
	delete(repo.sessions, tokenHash)
	return true, nil
}

func (repo *memorySessionRepo) DeleteByUser(_ stdctx.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for hash, record := range repo.sessions {
		if record.session.UserID == userID {
			delete(repo.sessions, hash)
		}
	}
	return nil
}

func (repo *memorySessionRepo) CountByUser(_ stdctx.Context, userID string) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var count int64
	for _, record := range repo.sessions {
		if record.session.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (repo *memorySessionRepo) DeleteOldestByUser(_ stdctx.Context, userID string, count int) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	owned := make([]*sessionRecord, 0)
	for _, record := range repo.sessions {
		if record.session.UserID == userID {
			owned = append(owned, record)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].seq < owned[j].seq })

	if count > len(owned) {
		count = len(owned)
	}
	for _, record := range owned[:count] {
		delete(repo.sessions, record.session.TokenHash)
	}
	return nil
}

func (repo *memorySessionRepo) DeleteExpired(_ stdctx.Context, olderThan time.Time) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var removed int64
	for hash, record := range repo.sessions {
		if record.session.ExpiresAt.Before(olderThan) {
			delete(repo.sessions, hash)
			removed++
		}
	}
	return removed, nil
}

// # Guard & Mailer Fakes

type recordingGuard struct {
	mu       sync.Mutex
	failures int
	resets   int
	blocked  bool
}

func (guard *recordingGuard) Check(_ stdctx.Context, _, _ string) error {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	if guard.blocked {
		return apperr.RateLimited(60)
	}
	return nil
}

func (guard *recordingGuard) RecordFailure(_ stdctx.Context, _, _ string) {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	guard.failures++
}

func (guard *recordingGuard) Reset(_ stdctx.Context, _, _ string) {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	guard.resets++
}

type capturingSender struct {
	mu        sync.Mutex
	recipient string
	secret    string
	sent      int
	fail      bool
}

func (sender *capturingSender) SendPasswordReset(_ stdctx.Context, recipientEmail, resetSecret string) error {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if sender.fail {
		return apperr.ServiceUnavailable("mail relay down")
	}
	sender.recipient = recipientEmail
	sender.secret = resetSecret
	sender.sent++
	return nil
}
