package auth

import (
	"time"

	"github.com/teamhub/teamhub/internal/models"
)

// UserRecord is a user row without password or PIN material.
type UserRecord struct {
	ID                 uint64     `json:"id"`
	TeamID             uint64     `json:"team_id"`
	TeamSlug           string     `json:"team_slug,omitempty"`
	TeamName           string     `json:"team_name,omitempty"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	DisplayName        string     `json:"display_name"`
	AvatarURL          string     `json:"avatar_url,omitempty"`
	Role               string     `json:"role"`
	Status             string     `json:"status"`
	Language           string     `json:"language"`
	TwoFAMethod        *string    `json:"two_fa_method"`
	TwoFASetupRequired bool       `json:"two_fa_setup_required"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// IsAdmin reports whether the record carries the admin role.
func (u *UserRecord) IsAdmin() bool {
	return u != nil && u.Role == models.RoleAdmin
}

func newUserRecord(user models.User) *UserRecord {
	record := &UserRecord{
		ID:                 user.ID,
		TeamID:             user.TeamID,
		Username:           user.Username,
		Email:              user.Email,
		DisplayName:        user.DisplayName,
		AvatarURL:          user.AvatarURL,
		Role:               user.Role,
		Status:             user.Status,
		Language:           user.Language,
		TwoFAMethod:        user.TwoFAMethod,
		TwoFASetupRequired: user.TwoFASetupRequired,
		LastLoginAt:        user.LastLoginAt,
		CreatedAt:          user.CreatedAt,
	}
	if user.Team != nil {
		record.TeamSlug = user.Team.Slug
		record.TeamName = user.Team.Name
	}
	return record
}

// TwoFASettings summarises a user's second-factor configuration.
type TwoFASettings struct {
	Method         *string `json:"method"`
	SetupRequired  bool    `json:"setup_required"`
	PINHashPresent bool    `json:"pin_hash_present"`
}
