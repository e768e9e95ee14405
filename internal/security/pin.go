package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PIN KDF parameters. The iteration count is deliberately lower than the
// password KDF; the 10^6 keyspace dominates either way.
const (
	pinLength     = 6
	pinIterations = 1000
	pinKeyLen     = 32
)

// ErrInvalidPIN is returned for anything other than exactly six ASCII digits.
var ErrInvalidPIN = errors.New("PIN must be exactly 6 digits")

// PINRecord is the stored form of a PIN: a salt and the derived hash, both hex.
type PINRecord struct {
	Hash string `json:"hash"`
	Salt string `json:"salt"`
}

// ValidatePIN checks the six-digit format.
func ValidatePIN(pin string) error {
	if len(pin) != pinLength {
		return ErrInvalidPIN
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// DerivePIN builds a fresh salted record for pin.
func DerivePIN(pin string) (PINRecord, error) {
	if err := ValidatePIN(pin); err != nil {
		return PINRecord{}, err
	}
	salt, err := newSalt()
	if err != nil {
		return PINRecord{}, err
	}
	return PINRecord{Hash: pinDigest(pin, salt), Salt: salt}, nil
}

// VerifyPIN reports whether pin matches record. It never fails loudly.
func VerifyPIN(pin string, record PINRecord) bool {
	if ValidatePIN(pin) != nil || record.Salt == "" || record.Hash == "" {
		return false
	}
	got := pinDigest(pin, record.Salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(record.Hash)) == 1
}

// ParsePINRecord decodes a stored record.
func ParsePINRecord(raw []byte) (PINRecord, error) {
	var record PINRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return PINRecord{}, fmt.Errorf("security: parse pin record: %w", err)
	}
	if record.Hash == "" || record.Salt == "" {
		return PINRecord{}, errors.New("security: incomplete pin record")
	}
	return record, nil
}

// Marshal encodes the record for storage.
func (r PINRecord) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

func pinDigest(pin, salt string) string {
	return hex.EncodeToString(pbkdf2.Key([]byte(pin), []byte(salt), pinIterations, pinKeyLen, sha256.New))
}
