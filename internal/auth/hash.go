package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashToken returns the hex SHA-256 digest a token record is keyed by;
// stores never retain the opaque credential itself.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
