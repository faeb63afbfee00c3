package influxdb

import "errors"

// Sentinel errors matched by callers with errors.Is. ErrDisabled in
// particular is a normal outcome: the daemon runs fine without telemetry.
var (
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrNotConnected     = errors.New("influxdb: not connected")
)
