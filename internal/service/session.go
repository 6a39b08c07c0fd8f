package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"maze-arcade/internal/domain"
	"maze-arcade/internal/repository"
)

// deleteConfirmation is the only value that actually deletes an
// account; anything else aborts with the session intact.
const deleteConfirmation = "yes"

// SessionManager authenticates browsers and tracks their sessions.
// Sessions live in process memory; the deployment is single-node.
type SessionManager struct {
	accounts repository.AccountRepository
	hasher   PasswordHasher

	mu       sync.RWMutex
	sessions map[string]domain.Session

	// dummyHash absorbs a password comparison when the identity is
	// unknown, so both failure paths cost about the same.
	dummyHash string
}

func NewSessionManager(accounts repository.AccountRepository, hasher PasswordHasher) (*SessionManager, error) {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &SessionManager{
		accounts:  accounts,
		hasher:    hasher,
		sessions:  make(map[string]domain.Session),
		dummyHash: dummy,
	}, nil
}

// Login verifies the credentials and establishes a session seeded from
// the account snapshot. Unknown identity and wrong password both return
// ErrAuthFailure.
func (m *SessionManager) Login(ctx context.Context, email, password string) (domain.Session, error) {
	account, err := m.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			_, _ = m.hasher.Verify(password, m.dummyHash)
			return domain.Session{}, ErrAuthFailure
		}
		return domain.Session{}, err
	}

	match, err := m.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return domain.Session{}, err
	}
	if !match {
		return domain.Session{}, ErrAuthFailure
	}

	session := domain.Session{
		ID:         uuid.NewString(),
		Email:      account.Email,
		Name:       account.Name,
		Score:      account.Score,
		BestTimeMs: account.BestTimeMs,
		Verified:   account.EmailVerified,
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	return session, nil
}

// Get returns the session snapshot, or ErrUnauthenticated when the
// session does not exist or has been logged out.
func (m *SessionManager) Get(sessionID string) (domain.Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return domain.Session{}, ErrUnauthenticated
	}
	return session, nil
}

// Logout ends the session. Logging out an unknown session is not an
// error.
func (m *SessionManager) Logout(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// RequireVerified gates the maze itself: an authenticated but
// unverified account may browse but not record runs. A stale unverified
// snapshot is re-read from the store before blocking, so verifying in
// another tab takes effect here.
func (m *SessionManager) RequireVerified(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := m.Get(sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Verified {
		return session, nil
	}

	session, err = m.Refresh(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if !session.Verified {
		return domain.Session{}, ErrBlockedUnverified
	}
	return session, nil
}

// Refresh re-reads the account and replaces the cached snapshot. A
// session whose account has been deleted is destroyed.
func (m *SessionManager) Refresh(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := m.Get(sessionID)
	if err != nil {
		return domain.Session{}, err
	}

	account, err := m.accounts.GetByEmail(ctx, session.Email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			m.Logout(sessionID)
			return domain.Session{}, ErrUnauthenticated
		}
		return domain.Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return domain.Session{}, ErrUnauthenticated
	}
	session.Name = account.Name
	session.Score = account.Score
	session.BestTimeMs = account.BestTimeMs
	session.Verified = account.EmailVerified
	m.sessions[sessionID] = session
	return session, nil
}

// UpdateProfile validates and applies a display name and email change,
// then rebinds the session to the new identity.
func (m *SessionManager) UpdateProfile(ctx context.Context, sessionID, newName, newEmail string) (domain.Session, error) {
	session, err := m.Get(sessionID)
	if err != nil {
		return domain.Session{}, err
	}

	var reasons []string
	reasons = append(reasons, checkName(newName)...)
	reasons = append(reasons, checkEmail(newEmail)...)
	if len(reasons) > 0 {
		return domain.Session{}, &ValidationError{Reasons: reasons}
	}

	if err := m.accounts.UpdateProfile(ctx, session.Email, newName, newEmail); err != nil {
		return domain.Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return domain.Session{}, ErrUnauthenticated
	}
	session.Email = newEmail
	session.Name = newName
	m.sessions[sessionID] = session
	return session, nil
}

// DeleteAccount permanently removes the account when confirm is an
// explicit "yes" and destroys the session. Any other confirmation value
// is a no-op that leaves the session intact.
func (m *SessionManager) DeleteAccount(ctx context.Context, sessionID, confirm string) (bool, error) {
	session, err := m.Get(sessionID)
	if err != nil {
		return false, err
	}
	if confirm != deleteConfirmation {
		return false, nil
	}

	if err := m.accounts.Delete(ctx, session.Email); err != nil {
		return false, err
	}
	m.Logout(sessionID)
	return true, nil
}
