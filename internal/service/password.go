package service

import (
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
)

// PasswordHasher produces and checks self-salted one-way digests of
// account passwords. Plaintext passwords are never stored or logged.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

type argonHasher struct {
	params *argon2id.Params
}

// NewPasswordHasher returns an argon2id based hasher with the library
// default parameters.
func NewPasswordHasher() PasswordHasher {
	return &argonHasher{params: argon2id.DefaultParams}
}

func (h *argonHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hash, err := argon2id.CreateHash(password, h.params)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (h *argonHasher) Verify(password, hash string) (bool, error) {
	if password == "" || hash == "" {
		return false, nil
	}
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}
	return match, nil
}
