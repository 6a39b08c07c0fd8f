package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"maze-arcade/internal/mail"
	"maze-arcade/internal/repository"
)

// tokenValidity is how long a verification link stays usable.
const tokenValidity = 5 * time.Hour

const tokenBytes = 32

// VerificationService issues and consumes single-use email
// verification tokens. At most one token is outstanding per account;
// issuing again replaces it.
type VerificationService struct {
	accounts repository.AccountRepository
	mailer   mail.Mailer
	baseURL  string

	// now is replaceable in tests.
	now func() time.Time
}

func NewVerificationService(accounts repository.AccountRepository, mailer mail.Mailer, baseURL string) *VerificationService {
	return &VerificationService{
		accounts: accounts,
		mailer:   mailer,
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// Issue generates a fresh token, persists it with the current time and
// emails the verification link. A delivery failure is reported as
// ErrMailDelivery but does not revoke the token: the persisted state is
// already correct and the user can request another email.
func (s *VerificationService) Issue(ctx context.Context, email, name string) (string, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	// A verified flag never reverts; there is nothing to issue.
	if account.EmailVerified {
		return "", ErrAlreadyVerified
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	if err := s.accounts.SetVerification(ctx, email, false, token, s.now()); err != nil {
		return "", err
	}

	// The email rides along as a query parameter and must survive the
	// round trip byte for byte; a raw + would decode to a space.
	link := fmt.Sprintf("%s/verify_email/%s?email=%s", s.baseURL, token, url.QueryEscape(email))
	if err := s.mailer.SendVerification(email, name, link); err != nil {
		return token, fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return token, nil
}

// Validate consumes the outstanding token for email. Acceptance flips
// the account to verified and clears the token in one conditional store
// write, which is what makes the token single-use. A rejected token is
// left untouched so the user can request a fresh one.
func (s *VerificationService) Validate(ctx context.Context, email, token string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrInvalidOrExpired
		}
		return err
	}
	// The single-use guarantee comes first: a consumed token reads as
	// invalid on every later attempt, even though the account is
	// verified by then.
	if token == "" || account.VerificationToken == "" || token != account.VerificationToken {
		return ErrInvalidOrExpired
	}
	if account.EmailVerified {
		return ErrAlreadyVerified
	}

	// The window is inclusive of its start: a token aged exactly the
	// validity duration is already expired.
	cutoff := s.now().Add(-tokenValidity)
	if !account.VerificationIssuedAt.After(cutoff) {
		return ErrInvalidOrExpired
	}

	consumed, err := s.accounts.ConsumeVerificationToken(ctx, email, token, cutoff)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrInvalidOrExpired
	}
	return nil
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
