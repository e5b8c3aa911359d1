package security

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
)

var keyPattern = regexp.MustCompile(`^(pk|sk|lic)_lk_[a-z0-9]{40}$`)

func TestKeyGeneratorFormat(t *testing.T) {
	g := NewKeyGenerator()
	seen := make(map[string]struct{})
	for _, prefix := range []string{domain.PublicKeyPrefix, domain.SecretKeyPrefix, domain.LicenseKeyPrefix} {
		for i := 0; i < 50; i++ {
			key, err := g.Generate(prefix)
			require.NoError(t, err)
			assert.Regexp(t, keyPattern, key)
			_, dup := seen[key]
			require.False(t, dup, "duplicate key %s", key)
			seen[key] = struct{}{}
		}
	}
}

func TestKeyGeneratorSkipsBiasedBytes(t *testing.T) {
	// 255 is rejected, 0 maps to 'a', 35 maps to '9'.
	src := bytes.Repeat([]byte{255, 0, 35}, 100)
	g := &KeyGenerator{rand: bytes.NewReader(src)}

	key, err := g.Generate("lic")
	require.NoError(t, err)
	assert.Equal(t, "lic_lk_"+string(bytes.Repeat([]byte("a9"), 20)), key)
}

func TestKeyGeneratorPropagatesReadError(t *testing.T) {
	g := &KeyGenerator{rand: bytes.NewReader(nil)}
	_, err := g.Generate("pk")
	require.Error(t, err)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, h.Verify("s3cret", hash))
	assert.False(t, h.Verify("wrong", hash))
	assert.False(t, h.Verify("s3cret", ""))

	_, err = h.Hash("")
	assert.ErrorIs(t, err, domain.ErrEmptySecret)

	_, err = h.Hash(strings.Repeat("é", 40))
	assert.ErrorIs(t, err, domain.ErrSecretTooLong)
	_, err = h.Hash(strings.Repeat("a", MaxPasswordBytes))
	assert.NoError(t, err)

	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).cost)
}

func TestJWTIssuerRoundTrip(t *testing.T) {
	issuer, err := NewJWTIssuer("top-secret", 0)
	require.NoError(t, err)

	token, err := issuer.Issue(domain.Claims{UserID: 42, Email: "a@example.com", Role: domain.RoleAdmin})
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestJWTIssuerRejectsBadTokens(t *testing.T) {
	issuer, err := NewJWTIssuer("top-secret", time.Hour)
	require.NoError(t, err)
	token, err := issuer.Issue(domain.Claims{UserID: 1, Role: domain.RoleUser})
	require.NoError(t, err)

	other, _ := NewJWTIssuer("other-secret", time.Hour)
	_, err = other.Verify(token)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken), "wrong secret: %v", err)

	_, err = issuer.Verify("not.a.token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "expired")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{UserID: 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	issuer.now = time.Now
	_, err = issuer.Verify(unsigned)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestNewJWTIssuerRequiresSecret(t *testing.T) {
	_, err := NewJWTIssuer("", time.Hour)
	require.Error(t, err)
}
