package ports

import "github.com/atvirokodosprendimai/licenseapi/internal/core/domain"

type KeyGenerator interface {
	Generate(prefix string) (string, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify never fails loudly: an empty or malformed hash is a mismatch.
	Verify(plaintext, hash string) bool
}

type TokenIssuer interface {
	Issue(claims domain.Claims) (string, error)
	Verify(token string) (domain.Claims, error)
}
