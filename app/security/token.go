package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// TokenBytes is the entropy of every emailed single-use token.
const TokenBytes = 32

// GenerateToken returns a random opaque token, hex encoded.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the form of a token that is stored and looked up.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
