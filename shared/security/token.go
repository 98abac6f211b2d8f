package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the amount of entropy in a generated token.
// The hex encoding doubles it in characters.
const TokenBytes = 32

// GenerateToken returns a hex encoded token read from crypto/rand.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return hex.EncodeToString(b), nil
}
