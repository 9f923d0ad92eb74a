// Package crypto generates random identifiers for issued credentials.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// TokenIDBytes is the entropy of a token id.
const TokenIDBytes = 16

// NewTokenID returns a random, URL-safe, unpadded identifier suitable for a
// JWT "jti" claim.
func NewTokenID() (string, error) {
	return randomString(TokenIDBytes)
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("random string needs a positive size, got %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
