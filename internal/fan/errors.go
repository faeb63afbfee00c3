package fan

import "errors"

// Domain errors for the fan package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, fan.ErrFanNotFound) {
//	    // the fan id is unknown
//	}
var (
	// ErrFanNotFound is returned when a fan ID does not exist in the registry.
	ErrFanNotFound = errors.New("fan: not found")

	// ErrDuplicateFan is returned when registering a fan ID that already exists.
	ErrDuplicateFan = errors.New("fan: already registered")

	// ErrInvalidPercentage is returned when a percentage is outside [0, 100].
	ErrInvalidPercentage = errors.New("fan: percentage must be between 0 and 100")

	// ErrInvalidDirection is returned when a direction is not forward or reverse.
	ErrInvalidDirection = errors.New("fan: direction must be forward or reverse")

	// ErrNotSupported is returned when an operation requires a capability the
	// device profile does not carry.
	ErrNotSupported = errors.New("fan: not supported by device profile")
)
