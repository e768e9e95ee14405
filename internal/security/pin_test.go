package security

import (
	"errors"
	"testing"
)

func TestPINRoundTrip(t *testing.T) {
	t.Parallel()

	for _, pin := range []string{"000000", "123456", "999999", "042042"} {
		record, err := DerivePIN(pin)
		if err != nil {
			t.Fatalf("derive %q: %v", pin, err)
		}
		if !VerifyPIN(pin, record) {
			t.Fatalf("verify %q: expected match", pin)
		}
	}
}

func TestPINOneDigitChangeFails(t *testing.T) {
	t.Parallel()

	record, err := DerivePIN("123456")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if VerifyPIN("123457", record) {
		t.Fatalf("expected altered PIN to fail")
	}
}

func TestPINRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	record, _ := DerivePIN("123456")
	for _, bad := range []string{"", "12345", "1234567", "12a456", "１２３４５６", " 12345", "12345\n"} {
		if _, err := DerivePIN(bad); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("derive %q: expected ErrInvalidPIN, got %v", bad, err)
		}
		if VerifyPIN(bad, record) {
			t.Fatalf("verify %q: expected false", bad)
		}
	}
	if VerifyPIN("123456", PINRecord{}) {
		t.Fatalf("expected empty record to fail")
	}
}

func TestPINRecordStorageRoundTrip(t *testing.T) {
	t.Parallel()

	record, _ := DerivePIN("654321")
	raw, err := record.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := ParsePINRecord(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !VerifyPIN("654321", parsed) {
		t.Fatalf("expected parsed record to verify")
	}
	if _, err := ParsePINRecord([]byte(`{"hash":"abc"}`)); err == nil {
		t.Fatalf("expected incomplete record error")
	}
}
