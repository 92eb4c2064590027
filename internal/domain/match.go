package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Default matching tolerances. Both are engine parameters; these defaults
// absorb rounding differences and posting-date drift between the two books.
var DefaultAmountTolerance = decimal.RequireFromString("0.01")

const DefaultDateWindowDays = 3

var (
	// ErrNotFound is returned when a referenced transaction id does not exist.
	ErrNotFound = errors.New("transaction not found")

	// ErrMatchConflict is returned when a conditional pair update loses to a
	// concurrent reconciliation. Callers advance to the next candidate.
	ErrMatchConflict = errors.New("transaction claimed by concurrent match")

	// ErrConstraintViolation indicates a stored pair that breaks match
	// symmetry or the one-match-per-transaction rule. Not repaired here.
	ErrConstraintViolation = errors.New("stored match violates pairing constraints")

	// ErrInvalidTransaction is returned by the ingestion gateway when a
	// record fails field validation.
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// DayDate normalizes a timestamp to its calendar date (midnight UTC).
func DayDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateDistanceDays returns the absolute calendar-day distance between two
// timestamps, ignoring time-of-day.
func DateDistanceDays(a, b time.Time) int {
	days := int(DayDate(a).Sub(DayDate(b)).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// AmountsWithin reports whether two amounts agree within the given absolute
// tolerance.
func AmountsWithin(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// CanMatch evaluates the full matching predicate over two loaded snapshots:
// opposite providers, identical currency, both pending, amounts within
// tolerance, dates within the day window (inclusive).
func CanMatch(a, b *Transaction, tolerance decimal.Decimal, windowDays int) bool {
	if a.ID == b.ID {
		return false
	}
	if a.Provider == b.Provider {
		return false
	}
	if a.Currency != b.Currency {
		return false
	}
	if a.Status != StatusPending || b.Status != StatusPending {
		return false
	}
	if !AmountsWithin(a.Amount, b.Amount, tolerance) {
		return false
	}
	return DateDistanceDays(a.TransactionDate, b.TransactionDate) <= windowDays
}
