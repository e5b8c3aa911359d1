package security

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	keyLength   = 40
	// largest multiple of len(keyAlphabet) that fits a byte
	keyCutoff = 252
)

// KeyGenerator produces prefix_lk_<40 chars of [a-z0-9]>.
type KeyGenerator struct {
	rand io.Reader
}

func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{rand: rand.Reader}
}

func (g *KeyGenerator) Generate(prefix string) (string, error) {
	out := make([]byte, 0, keyLength)
	buf := make([]byte, keyLength)
	for len(out) < keyLength {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if b >= keyCutoff {
				continue
			}
			out = append(out, keyAlphabet[int(b)%len(keyAlphabet)])
			if len(out) == keyLength {
				break
			}
		}
	}
	return prefix + "_lk_" + string(out), nil
}
