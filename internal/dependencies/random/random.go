package random

import (
	"crypto/rand"
	"encoding/base64"
)

// tokenBytes is the entropy of a generated token (URL-safe base64 of 24 bytes).
const tokenBytes = 24

// Random provides opaque identifier generation that can be mocked for testing
type Random interface {
	// Token generates an unguessable URL-safe token with the given prefix
	Token(prefix string) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Token generates a cryptographically random token with the given prefix
func (r *CryptoRandom) Token(prefix string) string {
	b := make([]byte, tokenBytes)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}
