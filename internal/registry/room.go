package registry

import (
	"fmt"
)

// Room is a named collection of devices owned by a Home.
//
// Thermometers and Sockets are kept in separate ordered collections but
// share one name space: a thermometer and a socket in the same room can
// never have the same name.
type Room struct {
	name         string
	home         *Home
	thermometers *collection[*Thermometer]
	sockets      *collection[*Socket]
	attached     bool
}

// Name returns the room name.
func (r *Room) Name() string { return r.name }

// Home returns the name of the home the room belongs to.
func (r *Room) Home() string { return r.home.name }

// AddThermometer adds a Thermometer backed by the endpoint at server.
// No network traffic happens until the first reading.
//
// Returns:
//   - *Thermometer: handle to the new device
//   - error: ErrInvalidName, ErrInvalidServer, ErrDuplicate when any device
//     in the room already has the name, or ErrConnection when no client
//     could be created
func (r *Room) AddThermometer(name, description, server string) (*Thermometer, error) {
	key, err := r.prepareDevice(KindThermometer, name, description, server)
	if err != nil {
		return nil, err
	}
	client, err := r.home.hub.connector.Thermometer(server)
	if err != nil {
		return nil, fmt.Errorf("thermometer %q at %s: %w: %w", key, server, ErrConnection, err)
	}

	t := &Thermometer{
		metadata: metadata{name: key, description: description, server: server, attached: true},
		client:   client,
	}
	r.thermometers.insert(key, t)
	r.logger().Debug("device added", "home", r.home.name, "room", r.name, "device", key, "kind", KindThermometer.String(), "server", server)
	return t, nil
}

// AddSocket adds a Socket backed by the endpoint at server.
// It follows the same rules as AddThermometer.
func (r *Room) AddSocket(name, description, server string) (*Socket, error) {
	key, err := r.prepareDevice(KindSocket, name, description, server)
	if err != nil {
		return nil, err
	}
	client, err := r.home.hub.connector.Socket(server)
	if err != nil {
		return nil, fmt.Errorf("socket %q at %s: %w: %w", key, server, ErrConnection, err)
	}

	s := &Socket{
		metadata: metadata{name: key, description: description, server: server, attached: true},
		client:   client,
	}
	r.sockets.insert(key, s)
	r.logger().Debug("device added", "home", r.home.name, "room", r.name, "device", key, "kind", KindSocket.String(), "server", server)
	return s, nil
}

// prepareDevice runs every check an add must pass before the room changes.
func (r *Room) prepareDevice(kind Kind, name, description, server string) (string, error) {
	if !r.attached {
		return "", fmt.Errorf("room %q: %w", r.name, ErrInvalidHandle)
	}
	key, err := ValidateName(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", kind, err)
	}
	if err := validateDescription(description); err != nil {
		return "", fmt.Errorf("%s %q: %w", kind, key, err)
	}
	if err := ValidateServer(server); err != nil {
		return "", fmt.Errorf("%s %q: %w", kind, key, err)
	}
	if r.thermometers.has(key) || r.sockets.has(key) {
		return "", fmt.Errorf("device %q in room %q: %w", key, r.name, ErrDuplicate)
	}
	return key, nil
}

// DelDevice removes the device with the given name, whatever its kind,
// and closes its endpoint client.
func (r *Room) DelDevice(name string) error {
	if !r.attached {
		return fmt.Errorf("room %q: %w", r.name, ErrInvalidHandle)
	}
	key := lookupKey(name)

	var err error
	if t, ok := r.thermometers.remove(key); ok {
		err = t.detach()
	} else if s, ok := r.sockets.remove(key); ok {
		err = s.detach()
	} else {
		return fmt.Errorf("device %q in room %q: %w", name, r.name, ErrNotFound)
	}

	if err != nil {
		r.logger().Warn("closing device client failed", "device", key, "error", err)
	}
	r.logger().Debug("device deleted", "home", r.home.name, "room", r.name, "device", key)
	return nil
}

// GetDevice returns the device with the given name as a Device. Use Kind or
// a type switch to reach the concrete *Thermometer or *Socket.
func (r *Room) GetDevice(name string) (Device, error) {
	if !r.attached {
		return nil, fmt.Errorf("room %q: %w", r.name, ErrInvalidHandle)
	}
	if d, ok := r.device(lookupKey(name)); ok {
		return d, nil
	}
	return nil, fmt.Errorf("device %q in room %q: %w", name, r.name, ErrNotFound)
}

func (r *Room) device(key string) (Device, bool) {
	if t, ok := r.thermometers.get(key); ok {
		return t, true
	}
	if s, ok := r.sockets.get(key); ok {
		return s, true
	}
	return nil, false
}

// ThermometerCount returns the number of thermometers.
func (r *Room) ThermometerCount() int { return r.thermometers.len() }

// SocketCount returns the number of sockets.
func (r *Room) SocketCount() int { return r.sockets.len() }

// DeviceCount returns the number of devices of any kind.
func (r *Room) DeviceCount() int { return r.thermometers.len() + r.sockets.len() }

// Thermometers returns a cursor over the thermometers in insertion order.
func (r *Room) Thermometers() *Cursor[*Thermometer] {
	return newCursor(r.thermometers.snapshot(), func(name string) (*Thermometer, bool) {
		if !r.attached {
			return nil, false
		}
		return r.thermometers.get(name)
	})
}

// Sockets returns a cursor over the sockets in insertion order.
func (r *Room) Sockets() *Cursor[*Socket] {
	return newCursor(r.sockets.snapshot(), func(name string) (*Socket, bool) {
		if !r.attached {
			return nil, false
		}
		return r.sockets.get(name)
	})
}

// Devices returns a cursor over every device: thermometers first, then
// sockets, each in insertion order. Each snapshot slot remembers its kind,
// so a device replaced by one of the other kind under the same name is
// skipped rather than yielded in the old device's place.
func (r *Room) Devices() *Cursor[Device] {
	thermometers := r.thermometers.snapshot()
	sockets := r.sockets.snapshot()
	return &Cursor[Device]{
		size: len(thermometers) + len(sockets),
		resolve: func(pos int) (Device, bool) {
			if !r.attached {
				return nil, false
			}
			if pos < len(thermometers) {
				if t, ok := r.thermometers.get(thermometers[pos]); ok {
					return t, true
				}
				return nil, false
			}
			if s, ok := r.sockets.get(sockets[pos-len(thermometers)]); ok {
				return s, true
			}
			return nil, false
		},
	}
}

func (r *Room) logger() Logger {
	return r.home.hub.logger
}

func (r *Room) detach() {
	for _, t := range r.thermometers.values() {
		if err := t.detach(); err != nil {
			r.logger().Warn("closing device client failed", "device", t.name, "error", err)
		}
	}
	for _, s := range r.sockets.values() {
		if err := s.detach(); err != nil {
			r.logger().Warn("closing device client failed", "device", s.name, "error", err)
		}
	}
	r.thermometers.clear()
	r.sockets.clear()
	r.attached = false
}
