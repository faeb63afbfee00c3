package controller

import "errors"

// Sentinel errors for controller construction and transmission.
var (
	// ErrUnsupportedController indicates the profile names a controller kind
	// this service has no transport for.
	ErrUnsupportedController = errors.New("controller: unsupported controller kind")

	// ErrSendFailed indicates a packet could not be delivered to the
	// transmitter.
	ErrSendFailed = errors.New("controller: send failed")
)
