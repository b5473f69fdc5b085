package telemetry

import "errors"

var (
	// ErrConnectionFailed is returned when the server cannot be reached at
	// startup.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when no URL is configured.
	ErrDisabled = errors.New("influxdb: disabled")
)
