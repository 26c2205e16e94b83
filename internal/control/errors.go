package control

import "errors"

var (
	// ErrInvalidCommand is returned for payloads that are not JSON objects
	// or carry an unknown command.
	ErrInvalidCommand = errors.New("control: invalid command")

	// ErrNotSocket is returned when a command targets a thermometer.
	ErrNotSocket = errors.New("control: device is not a socket")
)
