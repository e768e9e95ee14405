package models

import "time"

// BiometricCredential stores the server-side half of a platform credential so
// assertions can be verified against the registered public key.
type BiometricCredential struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // Owning user row.
	User   *User  `gorm:"foreignKey:UserID"`

	CredentialID   []byte `gorm:"type:bytea;not null;uniqueIndex"` // WebAuthn credential ID.
	PublicKey      []byte `gorm:"type:bytea;not null"`             // COSE public key.
	SignCount      uint32 `gorm:"type:bigint;not null;default:0"`  // Signature counter.
	BackupEligible bool   `gorm:"not null;default:false"`          // WebAuthn backup eligibility flag.
	BackupState    bool   `gorm:"not null;default:false"`          // WebAuthn backup state flag.
	Origin         string `gorm:"type:text;not null"`              // RP ID the credential is bound to.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
