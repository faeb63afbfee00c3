package profile

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileNotFound indicates no profile file exists for the device code.
	ErrProfileNotFound = errors.New("profile: device profile not found")

	// ErrInvalidProfile indicates the profile file is malformed or incomplete.
	ErrInvalidProfile = errors.New("profile: invalid device profile")

	// ErrCommandNotFound indicates the command table has no entry for the
	// requested state. It wraps ErrInvalidProfile: a reachable state missing
	// from the table is a profile defect, not a caller error.
	ErrCommandNotFound = fmt.Errorf("%w: command not found", ErrInvalidProfile)
)
