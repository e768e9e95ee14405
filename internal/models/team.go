package models

import "time"

// Team groups users; the slug disambiguates team-scoped signup and login.
type Team struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:text;not null"`             // Display name.
	Slug string `gorm:"type:text;not null;uniqueIndex"` // Unique URL-safe identifier.

	Users []User `gorm:"foreignKey:TeamID"` // Member rows.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
