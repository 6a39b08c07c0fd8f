package repository

import (
	"context"
	"errors"
	"time"

	"maze-arcade/internal/domain"
)

var (
	// ErrAccountNotFound is returned when no account exists for the
	// requested email.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateIdentity is returned when an email is already claimed
	// by another account.
	ErrDuplicateIdentity = errors.New("email already registered")
)

// AccountRepository defines persistence operations for Account entities.
//
// The score and verification mutations are single-statement conditional
// writes at the store so that concurrent sessions for the same account
// cannot lose updates.
type AccountRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, email, newName, newEmail string) error
	IncrementScore(ctx context.Context, email string) error
	// LowerBestTime sets the best time to millis only when it is
	// strictly lower than the stored value.
	LowerBestTime(ctx context.Context, email string, millis int64) error
	// SetVerification writes the verified flag and the token pair in a
	// single statement. Pass an empty token and zero time to clear the
	// outstanding token.
	SetVerification(ctx context.Context, email string, verified bool, token string, issuedAt time.Time) error
	// ConsumeVerificationToken marks the account verified and clears
	// the token pair iff token matches the outstanding token and it was
	// issued at or after notBefore. Returns whether the token was
	// consumed; a false result leaves the stored token untouched.
	ConsumeVerificationToken(ctx context.Context, email, token string, notBefore time.Time) (bool, error)
	// Delete removes the account. Deleting an unknown email is not an
	// error.
	Delete(ctx context.Context, email string) error
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
}
