package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWT validation errors.
var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// SessionClaims defines the session token issued after login. TwoFAVerified
// is only set once the PIN or biometric step succeeded; VerifiedAt carries the
// instant so the server can apply the daily re-verification boundary itself.
type SessionClaims struct {
	UserID        uint64           `json:"user_id"`
	TeamID        uint64           `json:"team_id"`
	Username      string           `json:"username"`
	Role          string           `json:"role"`
	TwoFAVerified bool             `json:"two_fa_verified"`
	VerifiedAt    *jwt.NumericDate `json:"verified_at,omitempty"`
	jwt.RegisteredClaims
}

// SessionSubject identifies the user a token is issued for.
type SessionSubject struct {
	UserID   uint64
	TeamID   uint64
	Username string
	Role     string
}

// GenerateSessionToken signs a session token. A nil verifiedAt issues a
// password-only token.
func GenerateSessionToken(secret string, subject SessionSubject, verifiedAt *time.Time, expiry time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		UserID:   subject.UserID,
		TeamID:   subject.TeamID,
		Username: subject.Username,
		Role:     subject.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(subject.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	if verifiedAt != nil {
		claims.TwoFAVerified = true
		claims.VerifiedAt = jwt.NewNumericDate(verifiedAt.UTC())
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken validates a session token and returns its claims.
func ParseSessionToken(secret string, tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifiedTime returns the 2FA completion instant, or nil for password-only tokens.
func (c *SessionClaims) VerifiedTime() *time.Time {
	if c == nil || !c.TwoFAVerified || c.VerifiedAt == nil {
		return nil
	}
	t := c.VerifiedAt.Time
	return &t
}
