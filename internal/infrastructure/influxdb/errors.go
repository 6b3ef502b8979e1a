package influxdb

import "errors"

// Sentinel errors for InfluxDB operations. Match with errors.Is.
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when the sink is switched off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
