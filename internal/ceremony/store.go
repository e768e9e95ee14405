// Package ceremony keeps in-flight WebAuthn session data between the options
// and verify halves of a registration or assertion.
package ceremony

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// ErrNotFound is returned when no live ceremony exists for a key.
var ErrNotFound = errors.New("ceremony expired")

// Store persists ceremony session data with a TTL. Take is single use.
type Store interface {
	Put(ctx context.Context, key string, data webauthn.SessionData, ttl time.Duration) error
	Take(ctx context.Context, key string) (webauthn.SessionData, error)
}

// RegistrationKey scopes a registration ceremony to a user.
func RegistrationKey(userID uint64) string {
	return "reg:" + strconv.FormatUint(userID, 10)
}

// AssertionKey scopes an assertion ceremony to a user.
func AssertionKey(userID uint64) string {
	return "login:" + strconv.FormatUint(userID, 10)
}

// expiry picks the earlier of the session's own expiry and now+ttl.
func expiry(data webauthn.SessionData, ttl time.Duration, now time.Time) time.Time {
	deadline := now.Add(ttl)
	if !data.Expires.IsZero() && data.Expires.Before(deadline) {
		return data.Expires
	}
	return deadline
}
