package session

import (
	"context"
	"errors"
)

// Roles and 2FA methods as reported by the server.
const (
	RoleAdmin       = "admin"
	MethodPIN       = "pin"
	MethodBiometric = "biometric"
)

// ErrUnauthorized is returned by a UserFetcher when the stored token is no longer accepted.
var ErrUnauthorized = errors.New("session: unauthorized")

// User is the subset of the account the client needs for routing.
type User struct {
	ID                 uint64  `json:"id"`
	TeamID             uint64  `json:"team_id"`
	Username           string  `json:"username"`
	DisplayName        string  `json:"display_name"`
	Role               string  `json:"role"`
	Status             string  `json:"status"`
	TwoFAMethod        *string `json:"two_fa_method"`
	TwoFASetupRequired bool    `json:"two_fa_setup_required"`
}

// Method returns the configured 2FA method or "".
func (u *User) Method() string {
	if u == nil || u.TwoFAMethod == nil {
		return ""
	}
	return *u.TwoFAMethod
}

// UserFetcher loads the current account for a session token.
type UserFetcher interface {
	FetchUser(ctx context.Context, token string) (*User, error)
}
