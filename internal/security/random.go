package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// saltBytes is the salt size for password and PIN records (128 bits).
const saltBytes = 16

// randomHex returns n random bytes hex-encoded.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("security: read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// newSalt returns a fresh 128-bit hex salt.
func newSalt() (string, error) {
	return randomHex(saltBytes)
}
