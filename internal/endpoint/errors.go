package endpoint

import "errors"

// Domain errors for the endpoint package.
var (
	// ErrInvalidPayload is returned when a device answers with data that
	// cannot be decoded into a reading.
	ErrInvalidPayload = errors.New("endpoint: invalid payload")

	// ErrServerClosed is returned by Serve after Close.
	ErrServerClosed = errors.New("endpoint: server closed")
)
