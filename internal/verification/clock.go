// Package verification decides when a completed two-factor step expires.
//
// A verification stays valid for the rest of the calendar day it was done in
// and always expires at the next 03:00 in Europe/Prague, however recently the
// user was active.
package verification

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// ReferenceZone names the zone whose wall clock defines the daily boundary.
const ReferenceZone = "Europe/Prague"

// BoundaryHour is the local hour at which verifications expire.
const BoundaryHour = 3

var reference = mustLoad(ReferenceZone)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("verification: load %s: %v", name, err))
	}
	return loc
}

// Location returns the reference time zone.
func Location() *time.Location {
	return reference
}

// NextBoundary returns the first 03:00 reference-zone instant strictly after
// verifiedAt.
func NextBoundary(verifiedAt time.Time) time.Time {
	local := verifiedAt.In(reference)
	boundary := time.Date(local.Year(), local.Month(), local.Day(), BoundaryHour, 0, 0, 0, reference)
	if !boundary.After(local) {
		boundary = time.Date(local.Year(), local.Month(), local.Day()+1, BoundaryHour, 0, 0, 0, reference)
	}
	return boundary
}

// ShouldRequireVerification reports whether a new two-factor step is due.
// A nil lastVerifiedAt means the device never verified.
func ShouldRequireVerification(lastVerifiedAt *time.Time, now time.Time) bool {
	if lastVerifiedAt == nil || lastVerifiedAt.IsZero() {
		return true
	}
	return !now.Before(NextBoundary(*lastVerifiedAt))
}

// FromMillis converts a stored millisecond timestamp; zero or negative means unset.
func FromMillis(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}
