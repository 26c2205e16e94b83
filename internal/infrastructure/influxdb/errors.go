package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed wraps the initial ping failure.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotHealthy means the server answered the ping but called itself
	// unhealthy.
	ErrNotHealthy = errors.New("influxdb: server not healthy")

	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: not connected")
)
