package service

import (
	"context"

	"maze-arcade/internal/domain"
	"maze-arcade/internal/repository"
)

// AccountService handles account creation and the public leaderboard.
type AccountService interface {
	Register(ctx context.Context, name, email, password, confirm string) (*domain.Account, error)
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

type accountService struct {
	accounts repository.AccountRepository
	hasher   PasswordHasher
}

func NewAccountService(accounts repository.AccountRepository, hasher PasswordHasher) AccountService {
	return &accountService{
		accounts: accounts,
		hasher:   hasher,
	}
}

// Register validates all fields, hashes the password and creates the
// account. Nothing is persisted when validation or hashing fails.
func (s *accountService) Register(ctx context.Context, name, email, password, confirm string) (*domain.Account, error) {
	var reasons []string
	reasons = append(reasons, checkName(name)...)
	reasons = append(reasons, checkEmail(email)...)
	reasons = append(reasons, checkPassword(password, confirm)...)
	if len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		BestTimeMs:   domain.BestTimeSentinel,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *accountService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return s.accounts.Leaderboard(ctx)
}
