package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting stores an application-wide override, e.g. WebAuthn relying party values.
type Setting struct {
	Key       string         `gorm:"type:varchar(255);primaryKey"` // Override key.
	Value     datatypes.JSON `gorm:"type:jsonb"`                   // JSON-encoded value.
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime"`      // Last update timestamp.
}
