package random

import (
	"crypto/rand"
	"encoding/hex"
)

// Random provides randomness that can be mocked for testing
type Random interface {
	// Token returns a hex string carrying n random bytes
	Token(n int) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Token returns a hex string carrying n bytes from crypto/rand
func (r *CryptoRandom) Token(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
