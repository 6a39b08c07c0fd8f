package service

import (
	"errors"
	"strings"
)

var (
	// ErrAuthFailure is returned for both unknown identity and wrong
	// password so callers cannot probe which accounts exist.
	ErrAuthFailure = errors.New("incorrect email or password")
	// ErrUnauthenticated indicates a missing or ended session.
	ErrUnauthenticated = errors.New("not logged in")
	// ErrBlockedUnverified indicates an authenticated account that has
	// not yet confirmed its email address.
	ErrBlockedUnverified = errors.New("email address not verified")
	// ErrInvalidOrExpired indicates a verification token that is
	// unknown, already used, or outside its validity window.
	ErrInvalidOrExpired = errors.New("verification link is invalid or expired")
	// ErrAlreadyVerified indicates the account was verified before this
	// attempt.
	ErrAlreadyVerified = errors.New("email address already verified")
	// ErrInvalidElapsed indicates a run submission with a negative
	// elapsed time.
	ErrInvalidElapsed = errors.New("invalid elapsed time")
	// ErrMailDelivery indicates the verification email could not be
	// sent. The issued token remains valid; the user may retry.
	ErrMailDelivery = errors.New("failed to send verification email")
)

// ValidationError reports every rule a registration or profile input
// violated, so the caller can re-prompt with the full list at once.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}
