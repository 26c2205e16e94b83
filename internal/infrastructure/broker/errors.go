package broker

import "errors"

var (
	// ErrStartFailed is returned when the broker cannot be configured or
	// its listener cannot be opened.
	ErrStartFailed = errors.New("broker: start failed")

	// ErrNotStarted is returned by Addr before Start succeeds.
	ErrNotStarted = errors.New("broker: not started")
)
