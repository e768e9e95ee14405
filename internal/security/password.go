package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Password KDF parameters.
const (
	passwordIterations = 10000
	passwordKeyLen     = 32
	recordSeparator    = "$"
)

// ErrEmptySecret is returned when no encryption secret is configured.
var ErrEmptySecret = errors.New("security: empty password secret")

// PasswordHasher derives and verifies encrypted password records.
// A record is base64(nonce || AES-GCM(salt + "$" + hex(PBKDF2(password, salt)))).
type PasswordHasher struct {
	aead cipher.AEAD
}

// NewPasswordHasher builds a hasher keyed by the configured secret.
func NewPasswordHasher(secret string) (*PasswordHasher, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecret
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("security: password cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: password gcm: %w", err)
	}
	return &PasswordHasher{aead: aead}, nil
}

// Derive produces the stored record for password.
func (h *PasswordHasher) Derive(password string) (string, error) {
	salt, err := newSalt()
	if err != nil {
		return "", err
	}
	plain := salt + recordSeparator + passwordDigest(password, salt)

	nonce := make([]byte, h.aead.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("security: password nonce: %w", err)
	}
	sealed := h.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Verify reports whether password matches record. Undecryptable or malformed
// records are indistinguishable from a wrong password.
func (h *PasswordHasher) Verify(password, record string) bool {
	plain, err := h.open(record)
	if err != nil {
		return false
	}
	salt, want, ok := strings.Cut(plain, recordSeparator)
	if !ok || salt == "" || want == "" {
		return false
	}
	got := passwordDigest(password, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (h *PasswordHasher) open(record string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(record))
	if err != nil {
		return "", err
	}
	nonceSize := h.aead.NonceSize()
	if len(sealed) <= nonceSize {
		return "", errors.New("security: record too short")
	}
	plain, err := h.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func passwordDigest(password, salt string) string {
	return hex.EncodeToString(pbkdf2.Key([]byte(password), []byte(salt), passwordIterations, passwordKeyLen, sha256.New))
}
