package contextutils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MaskSecret masks a key or token for logging purposes.
// Returns a masked version that shows only first 4 and last 4 characters
func MaskSecret(secret string) string {
	if secret == "" {
		return "[EMPTY]"
	}

	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}

	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// HashToken returns the hex SHA-256 digest stored in place of opaque tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
