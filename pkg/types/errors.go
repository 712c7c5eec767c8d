package types

import "errors"

// Sentinel errors for expected data-sufficiency gaps. Callers are expected to
// branch on these with errors.Is and render an explicit "not enough data"
// state instead of a fabricated zero. Programming errors (such as an
// unrecognized tariff rate shape) are wrapped around ErrUnexpectedRateShape
// and should never be swallowed.
var (
	// ErrInsufficientData is returned when a calculation requires a minimum
	// historical span (e.g. a year of readings) that is not available.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrRangeUnavailable is returned by range queries that extend outside the
	// dates a store actually covers. It is distinct from a legitimate zero.
	ErrRangeUnavailable = errors.New("date range not covered by available data")

	// ErrUnresolvedTariff is returned when no tariff applies to a date at any
	// owner level and no system default was supplied.
	ErrUnresolvedTariff = errors.New("no tariff resolved for date")

	// ErrUnexpectedRateShape is returned when a tariff's rate structure is not
	// one of flat, differential or tiered. This is a configuration bug.
	ErrUnexpectedRateShape = errors.New("unexpected tariff rate shape")
)
