// Package session holds the client-side authentication state: persisted
// identifiers, 2FA verification flags and route guards.
package session

import "sync"

// Persisted keys. Names match what existing clients already store.
const (
	KeyUserID                  = "userId"
	KeyTeamID                  = "teamId"
	KeySessionToken            = "session_token"
	KeyPending2FA              = "pending2FAVerification"
	KeyPINVerified             = "pin_verified"
	KeyBiometricVerified       = "biometric_verified"
	KeyBiometricVerifiedLegacy = "biometricVerified"
	KeyVerificationTime        = "verificationTime"
	KeyTwoFAMethod             = "two_fa_method"
	KeyBiometricCredential     = "biometric_credential"
	KeyBiometricDomain         = "biometric_domain"

	// Legacy PIN keys from clients that hashed the PIN locally. Never written,
	// only cleared on sign out.
	KeyPINCredential = "pin_credential"
	KeyPINHash       = "pin_hash"
	KeyPINUserID     = "pin_user_id"
)

// verifiedFlagKeys are cleared when re-verification becomes due.
var verifiedFlagKeys = []string{KeyPINVerified, KeyBiometricVerified, KeyBiometricVerifiedLegacy}

// sessionKeys are cleared on sign out. Device-bound biometric registration survives.
var sessionKeys = []string{
	KeyUserID, KeyTeamID, KeySessionToken, KeyPending2FA, KeyPINVerified,
	KeyBiometricVerified, KeyBiometricVerifiedLegacy, KeyVerificationTime,
	KeyTwoFAMethod, KeyPINCredential, KeyPINHash, KeyPINUserID,
}

// Store is synchronous string key/value storage local to one device.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(keys ...string)
}

// MemoryStore is an in-process Store. Concurrent writers see last-write-wins.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[key]
	return value, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

func (s *MemoryStore) Remove(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.items, key)
	}
}
