package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
)

const (
	DefaultBcryptCost = 12
	// MaxPasswordBytes is bcrypt's input limit.
	MaxPasswordBytes = 72
)

type BcryptHasher struct {
	cost int
}

// NewBcryptHasher falls back to DefaultBcryptCost for costs bcrypt would reject.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", domain.ErrEmptySecret
	}
	if len(password) > MaxPasswordBytes {
		return "", domain.ErrSecretTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.ErrSecretTooLong
		}
		return "", err
	}
	return string(hashed), nil
}

// Verify reports false for an empty hash; unredeemed licenses have none.
func (h *BcryptHasher) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
