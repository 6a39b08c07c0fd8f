package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"maze-arcade/internal/repository"
	"maze-arcade/internal/repository/sqlite"
)

func newTestRepo(t *testing.T) repository.AccountRepository {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewAccountRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

// registerTestAccount creates a valid account through the registration
// path and returns the shared fixtures for session and ledger tests.
func registerTestAccount(t *testing.T, repo repository.AccountRepository) (AccountService, *SessionManager) {
	t.Helper()

	hasher := NewPasswordHasher()
	accounts := NewAccountService(repo, hasher)
	_, err := accounts.Register(context.Background(), "Ann", "ann@x.com", "Abc123!@", "Abc123!@")
	require.NoError(t, err)

	sessions, err := NewSessionManager(repo, hasher)
	require.NoError(t, err)
	return accounts, sessions
}

// capturingMailer records the last verification message instead of
// delivering it.
type capturingMailer struct {
	recipient string
	link      string
	fail      error
}

func (m *capturingMailer) SendVerification(recipient, name, link string) error {
	if m.fail != nil {
		return m.fail
	}
	m.recipient = recipient
	m.link = link
	return nil
}
