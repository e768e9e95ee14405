package models

import (
	"time"

	"gorm.io/datatypes"
)

// User roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)

// User account statuses.
const (
	StatusActive   = "active"
	StatusPending  = "pending"
	StatusInactive = "inactive"
)

// Two-factor methods.
const (
	TwoFAMethodPIN       = "pin"
	TwoFAMethodBiometric = "biometric"
)

// User is one team membership. A person in N teams has N rows that may share
// password material when they signed up with the same email.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TeamID uint64 `gorm:"not null;uniqueIndex:idx_users_team_username;index"` // Owning team.
	Team   *Team  `gorm:"foreignKey:TeamID"`                                  // Owning team.

	Username    string `gorm:"type:text;not null;uniqueIndex:idx_users_team_username"` // Unique within the team.
	Email       string `gorm:"type:text;not null;index"`                               // Contact email, links identities across teams.
	DisplayName string `gorm:"type:text"`                                              // Human readable name.
	AvatarURL   string `gorm:"type:text"`                                              // Optional avatar.
	Role        string `gorm:"type:text;not null;default:'member'"`                    // admin, manager or member.
	Status      string `gorm:"type:text;not null;default:'pending'"`                   // active, pending or inactive.
	Language    string `gorm:"type:text;not null;default:'en'"`                        // UI language preference.

	Password string         `gorm:"type:text;not null"` // Encrypted password record.
	PINHash  datatypes.JSON `gorm:"type:jsonb"`         // PIN hash record, null until set up.

	TwoFAMethod        *string    `gorm:"column:two_fa_method;type:text"`                     // pin, biometric or null.
	TwoFASetupRequired bool       `gorm:"column:two_fa_setup_required;not null;default:true"` // Forces the setup prompt.
	LastLoginAt        *time.Time `gorm:"column:last_login_at"`                               // Last successful password login.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
