package registry

import "errors"

// Domain errors for the registry package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, registry.ErrNotFound) {
//	    // handle missing home, room or device
//	}
var (
	// ErrDuplicate is returned when adding an entity whose name is already taken.
	// Device names are unique across thermometers and sockets of a room.
	ErrDuplicate = errors.New("registry: already exists")

	// ErrNotFound is returned when looking up or deleting an absent name.
	ErrNotFound = errors.New("registry: not found")

	// ErrConnection is returned when a device endpoint is unreachable or
	// answers with a payload that cannot be parsed.
	ErrConnection = errors.New("registry: connection error")

	// ErrInvalidHandle is returned when using a handle whose entity was
	// deleted or whose hub was destroyed.
	ErrInvalidHandle = errors.New("registry: invalid handle")

	// ErrInvalidName is returned when a name is empty, too long, or not printable text.
	ErrInvalidName = errors.New("registry: invalid name")

	// ErrInvalidDescription is returned when a device description is too long.
	ErrInvalidDescription = errors.New("registry: invalid description")

	// ErrInvalidServer is returned when a device server address is not host:port.
	ErrInvalidServer = errors.New("registry: invalid server address")
)

// errInvalidReading marks a non-finite value coming back from an endpoint.
var errInvalidReading = errors.New("reading is not a finite number")
