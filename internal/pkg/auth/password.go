package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
)

// bcrypt silently ignores input past this length.
const maxPasswordBytes = 72

// PasswordHasher defines hashing strategy for credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
}

// BcryptHasher uses bcrypt to hash passwords.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates BcryptHasher with provided cost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns bcrypt hash for provided password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("password longer than %d bytes: %w", maxPasswordBytes, domainErrors.ErrInvalidInput)
	}
	encoded, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// Compare checks password against stored hash. A mismatch is reported as
// invalid credentials; a corrupt hash is returned as is.
func (h *BcryptHasher) Compare(hash string, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domainErrors.ErrInvalidCredentials
	}
	return err
}
