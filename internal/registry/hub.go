package registry

import (
	"fmt"
)

// Logger defines the logging interface used by the registry.
// This allows the registry to work with any structured logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats holds entity counts across a hub.
type Stats struct {
	Homes        int `json:"homes"`
	Rooms        int `json:"rooms"`
	Thermometers int `json:"thermometers"`
	Sockets      int `json:"sockets"`
}

// Hub is the root of the registry tree. It owns every Home exclusively.
//
// A Hub is created with NewHub and released with Destroy. It is not safe
// for concurrent use; see Shared.
type Hub struct {
	homes     *collection[*Home]
	connector Connector
	logger    Logger
	destroyed bool
}

// NewHub creates an empty registry whose devices reach their endpoints
// through connector.
//
// Parameters:
//   - connector: creates endpoint clients; nil yields devices whose reads
//     always fail with ErrConnection
//
// Returns:
//   - *Hub: empty hub ready for AddHome
func NewHub(connector Connector) *Hub {
	if connector == nil {
		connector = offlineConnector{}
	}
	return &Hub{
		homes:     newCollection[*Home](),
		connector: connector,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the hub and everything beneath it.
func (h *Hub) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	h.logger = logger
}

// AddHome creates an empty Home at the end of the hub's home order.
//
// Returns:
//   - *Home: handle to the new home
//   - error: ErrInvalidName, ErrDuplicate, or ErrInvalidHandle after Destroy
func (h *Hub) AddHome(name string) (*Home, error) {
	if h.destroyed {
		return nil, fmt.Errorf("hub: %w", ErrInvalidHandle)
	}
	key, err := ValidateName(name)
	if err != nil {
		return nil, fmt.Errorf("home: %w", err)
	}
	if h.homes.has(key) {
		return nil, fmt.Errorf("home %q: %w", key, ErrDuplicate)
	}

	home := &Home{
		name:     key,
		hub:      h,
		rooms:    newCollection[*Room](),
		attached: true,
	}
	h.homes.insert(key, home)
	h.logger.Debug("home added", "home", key)
	return home, nil
}

// DelHome removes a Home and everything it owns. Handles beneath it become
// detached and device connections are closed.
func (h *Hub) DelHome(name string) error {
	if h.destroyed {
		return fmt.Errorf("hub: %w", ErrInvalidHandle)
	}
	home, ok := h.homes.remove(lookupKey(name))
	if !ok {
		return fmt.Errorf("home %q: %w", name, ErrNotFound)
	}
	home.detach()
	h.logger.Debug("home deleted", "home", home.name)
	return nil
}

// GetHome returns the Home with the given name.
func (h *Hub) GetHome(name string) (*Home, error) {
	if h.destroyed {
		return nil, fmt.Errorf("hub: %w", ErrInvalidHandle)
	}
	home, ok := h.homes.get(lookupKey(name))
	if !ok {
		return nil, fmt.Errorf("home %q: %w", name, ErrNotFound)
	}
	return home, nil
}

// HomeCount returns the number of homes. A destroyed hub has none.
func (h *Hub) HomeCount() int {
	return h.homes.len()
}

// Homes returns a cursor over the homes in insertion order.
func (h *Hub) Homes() *Cursor[*Home] {
	return newCursor(h.homes.snapshot(), func(name string) (*Home, bool) {
		if h.destroyed {
			return nil, false
		}
		return h.homes.get(name)
	})
}

// Stats counts every entity in the hub.
func (h *Hub) Stats() Stats {
	var s Stats
	for _, home := range h.homes.values() {
		s.Homes++
		for _, room := range home.rooms.values() {
			s.Rooms++
			s.Thermometers += room.thermometers.len()
			s.Sockets += room.sockets.len()
		}
	}
	return s
}

// Destroy releases the whole tree. Every Home, Room and Device handle
// obtained from the hub is detached and outstanding cursors are exhausted.
// Calling Destroy more than once is a no-op.
func (h *Hub) Destroy() {
	if h.destroyed {
		return
	}
	for _, home := range h.homes.values() {
		home.detach()
	}
	h.homes.clear()
	h.destroyed = true
	h.logger.Debug("hub destroyed")
}
