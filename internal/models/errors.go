package models

import "errors"

// Recoverable domain conditions. Callers branch with errors.Is; none of
// these terminate the process and all leave prior state unchanged.
var (
	// ErrNotFound is returned for an unknown ride or driver id.
	ErrNotFound = errors.New("not found")

	// ErrStaleOffer is returned by accept/reject when the offer was already
	// withdrawn or the ride resolved to another driver.
	ErrStaleOffer = errors.New("stale offer")

	// ErrInvalidTransition is returned when an operation does not match the
	// ride's current status precondition. Always a no-op.
	ErrInvalidTransition = errors.New("invalid ride status transition")

	// ErrNoCandidateDrivers means a broadcast found nobody online.
	// Informational; the ride stays unmatched and may be re-broadcast.
	ErrNoCandidateDrivers = errors.New("no candidate drivers")
)
