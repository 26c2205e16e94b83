package registry

import (
	"context"
	"fmt"
	"math"
)

// Kind identifies the concrete type behind a Device.
type Kind int

// Device kinds.
const (
	KindThermometer Kind = iota + 1
	KindSocket
)

// String returns the kind name used in logs, topics and API payloads.
func (k Kind) String() string {
	switch k {
	case KindThermometer:
		return "thermometer"
	case KindSocket:
		return "socket"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Device is a smart device owned by a Room.
//
// The interface is sealed: the only implementations are *Thermometer and
// *Socket. Switch on Kind, or use a type switch, to reach kind-specific
// operations:
//
//	switch d := dev.(type) {
//	case *registry.Thermometer:
//	    t, err := d.Temperature(ctx)
//	case *registry.Socket:
//	    err := d.TurnOn(ctx)
//	}
type Device interface {
	Name() string
	Description() string
	Server() string
	Kind() Kind

	sealed()
}

// metadata holds the fields shared by every device kind.
type metadata struct {
	name        string
	description string
	server      string
	attached    bool
}

// Name returns the device name. It never changes after creation.
func (m *metadata) Name() string { return m.name }

// Description returns the free-form device description.
func (m *metadata) Description() string { return m.description }

// Server returns the host:port of the device endpoint.
func (m *metadata) Server() string { return m.server }

func (m *metadata) sealed() {}

// Thermometer is a temperature sensor. Its reading is not stored; every
// call to Temperature asks the endpoint.
type Thermometer struct {
	metadata
	client ThermometerClient
}

// Kind returns KindThermometer.
func (*Thermometer) Kind() Kind { return KindThermometer }

// Temperature returns the current reading from the endpoint.
// Unreachable endpoints and unparsable answers return ErrConnection.
func (t *Thermometer) Temperature(ctx context.Context) (float64, error) {
	if !t.attached {
		return 0, fmt.Errorf("thermometer %q: %w", t.name, ErrInvalidHandle)
	}
	value, err := t.client.Temperature(ctx)
	if err != nil {
		return 0, connectionError(t, "reading temperature", err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, connectionError(t, "reading temperature", errInvalidReading)
	}
	return value, nil
}

func (t *Thermometer) detach() error {
	t.attached = false
	return closeClient(t.client)
}

// Socket is a switchable power socket. Its on/off state lives on the
// endpoint and is not cached.
type Socket struct {
	metadata
	client SocketClient
}

// Kind returns KindSocket.
func (*Socket) Kind() Kind { return KindSocket }

// Power returns the current power draw in watts.
func (s *Socket) Power(ctx context.Context) (float64, error) {
	if !s.attached {
		return 0, fmt.Errorf("socket %q: %w", s.name, ErrInvalidHandle)
	}
	value, err := s.client.Power(ctx)
	if err != nil {
		return 0, connectionError(s, "reading power", err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, connectionError(s, "reading power", errInvalidReading)
	}
	return value, nil
}

// TurnOn asks the endpoint to switch the socket on. A nil error means the
// command was accepted, not that the relay has already switched.
func (s *Socket) TurnOn(ctx context.Context) error {
	if !s.attached {
		return fmt.Errorf("socket %q: %w", s.name, ErrInvalidHandle)
	}
	if err := s.client.TurnOn(ctx); err != nil {
		return connectionError(s, "turning on", err)
	}
	return nil
}

// TurnOff asks the endpoint to switch the socket off.
func (s *Socket) TurnOff(ctx context.Context) error {
	if !s.attached {
		return fmt.Errorf("socket %q: %w", s.name, ErrInvalidHandle)
	}
	if err := s.client.TurnOff(ctx); err != nil {
		return connectionError(s, "turning off", err)
	}
	return nil
}

func (s *Socket) detach() error {
	s.attached = false
	return closeClient(s.client)
}

// connectionError wraps an endpoint failure so errors.Is matches ErrConnection.
func connectionError(d Device, op string, err error) error {
	return fmt.Errorf("%s %q at %s: %s: %w: %w", d.Kind(), d.Name(), d.Server(), op, ErrConnection, err)
}
