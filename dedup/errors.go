package dedup

import "errors"

var (
	// ErrReservationHeld indicates another in-flight item holds the fingerprint.
	ErrReservationHeld = errors.New("fingerprint reserved by another item")

	// ErrInvalidLease indicates a non-positive lease duration.
	ErrInvalidLease = errors.New("lease must be positive")
)
