package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/workforcehq/hrms-api/internal/core/domain"
	"github.com/workforcehq/hrms-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Credential store stub
// ---------------------------------------------------------------------------

type stubCredentialStore struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	nextID int
	err    error // returned by every call when set
}

func newStubCredentialStore() *stubCredentialStore {
	return &stubCredentialStore{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (s *stubCredentialStore) seed(u *domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		s.nextID++
		u.ID = fmt.Sprintf("user-%d", s.nextID)
	}
	s.byID[u.ID] = cloneUser(u)
	return cloneUser(u)
}

func (s *stubCredentialStore) get(id string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.byID[id])
}

func (s *stubCredentialStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.byID {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubCredentialStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *stubCredentialStore) Update(_ context.Context, id string, upd ports.CredentialUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if upd.ResetLockout {
		u.FailedLoginAttempts = 0
		u.AccountLockedUntil = nil
	}
	if upd.LastLoginAt != nil {
		t := *upd.LastLoginAt
		u.LastLoginAt = &t
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.PasswordChangedAt != nil {
		t := *upd.PasswordChangedAt
		u.PasswordChangedAt = &t
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	return cloneUser(u), nil
}

func (s *stubCredentialStore) RegisterFailedLogin(_ context.Context, id string, maxAttempts int, lockUntil time.Time) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		t := lockUntil
		u.AccountLockedUntil = &t
	}
	return cloneUser(u), nil
}

func (s *stubCredentialStore) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.byID {
		if u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
	}
	s.nextID++
	created := cloneUser(user)
	created.ID = fmt.Sprintf("user-%d", s.nextID)
	s.byID[created.ID] = cloneUser(created)
	return cloneUser(created), nil
}

// ---------------------------------------------------------------------------
// Session registry stub
// ---------------------------------------------------------------------------

type stubSessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]domain.SessionContext
	down     bool
	// failDeletes makes the first N Delete calls report unavailability.
	failDeletes int
	deletes     int
}

func newStubSessionRegistry() *stubSessionRegistry {
	return &stubSessionRegistry{sessions: make(map[string]domain.SessionContext)}
}

func sessionKey(userID, sessionID string) string { return userID + ":" + sessionID }

func (r *stubSessionRegistry) setDown(down bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.down = down
}

func (r *stubSessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *stubSessionRegistry) Create(_ context.Context, userID, sessionID string, sc domain.SessionContext, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return domain.ErrStoreUnavailable
	}
	r.sessions[sessionKey(userID, sessionID)] = sc
	return nil
}

func (r *stubSessionRegistry) Exists(_ context.Context, userID, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return false, domain.ErrStoreUnavailable
	}
	_, ok := r.sessions[sessionKey(userID, sessionID)]
	return ok, nil
}

func (r *stubSessionRegistry) Delete(_ context.Context, userID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	if r.down || r.deletes <= r.failDeletes {
		return domain.ErrStoreUnavailable
	}
	delete(r.sessions, sessionKey(userID, sessionID))
	return nil
}

func (r *stubSessionRegistry) DeleteAll(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return domain.ErrStoreUnavailable
	}
	for k, sc := range r.sessions {
		if sc.UserID == userID {
			delete(r.sessions, k)
		}
	}
	return nil
}
