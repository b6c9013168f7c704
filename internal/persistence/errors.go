package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a write claims a barcode or identifier
	// that already exists anywhere in the shared namespace.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when a write fails a schema constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrUnavailable is returned when the underlying storage cannot be reached.
	ErrUnavailable = errors.New("persistence: storage unavailable")
)
