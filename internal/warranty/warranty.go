// Package warranty computes warranty validity windows.
package warranty

import (
	"strings"
	"time"

	"backoffice-service/internal/apperr"
)

// Period units
const (
	UnitDays   = "Days"
	UnitMonths = "Months"
	UnitYears  = "Years"
)

// NormalizeUnit maps a unit name to its canonical spelling. Singular and
// lower-case forms are accepted.
func NormalizeUnit(unit string) (string, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(unit)), "s") {
	case "day":
		return UnitDays, nil
	case "month":
		return UnitMonths, nil
	case "year":
		return UnitYears, nil
	}
	return "", apperr.Validation("unknown warranty period unit %q", unit)
}

// Expiry returns issueDate advanced by the warranty period.
func Expiry(issueDate time.Time, value int, unit string) (time.Time, error) {
	if value < 0 {
		return time.Time{}, apperr.Validation("warranty period must not be negative, got %d", value)
	}
	canonical, err := NormalizeUnit(unit)
	if err != nil {
		return time.Time{}, err
	}
	switch canonical {
	case UnitDays:
		return issueDate.AddDate(0, 0, value), nil
	case UnitMonths:
		return issueDate.AddDate(0, value, 0), nil
	default:
		return issueDate.AddDate(value, 0, 0), nil
	}
}

// IsUnderWarranty reports whether now falls on or before the warranty expiry.
// A line sold without a warranty period is never under warranty.
func IsUnderWarranty(issueDate time.Time, value int, unit string, now time.Time) (bool, error) {
	if value == 0 || unit == "" {
		return false, nil
	}
	expiry, err := Expiry(issueDate, value, unit)
	if err != nil {
		return false, err
	}
	return !now.After(expiry), nil
}

// Status is the warranty state of a sold item
type Status struct {
	Covered    bool       `json:"covered"`
	Voided     bool       `json:"voided"`
	VoidReason string     `json:"void_reason,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Evaluate combines the date window with an explicit void. A voided warranty
// never covers, whatever the dates say.
func Evaluate(issueDate time.Time, value int, unit string, voided bool, reason string, now time.Time) (Status, error) {
	st := Status{Voided: voided, VoidReason: reason}
	if value == 0 || unit == "" {
		return st, nil
	}
	expiry, err := Expiry(issueDate, value, unit)
	if err != nil {
		return st, err
	}
	st.ExpiresAt = &expiry
	st.Covered = !voided && !now.After(expiry)
	return st, nil
}
