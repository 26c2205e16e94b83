package registry

import "fmt"

// Home is a named collection of Rooms owned by a Hub.
type Home struct {
	name     string
	hub      *Hub
	rooms    *collection[*Room]
	attached bool
}

// Name returns the home name.
func (h *Home) Name() string { return h.name }

// AddRoom creates an empty Room at the end of the home's room order.
func (h *Home) AddRoom(name string) (*Room, error) {
	if !h.attached {
		return nil, fmt.Errorf("home %q: %w", h.name, ErrInvalidHandle)
	}
	key, err := ValidateName(name)
	if err != nil {
		return nil, fmt.Errorf("room: %w", err)
	}
	if h.rooms.has(key) {
		return nil, fmt.Errorf("room %q in home %q: %w", key, h.name, ErrDuplicate)
	}

	room := &Room{
		name:         key,
		home:         h,
		thermometers: newCollection[*Thermometer](),
		sockets:      newCollection[*Socket](),
		attached:     true,
	}
	h.rooms.insert(key, room)
	h.hub.logger.Debug("room added", "home", h.name, "room", key)
	return room, nil
}

// DelRoom removes a Room and all of its devices.
func (h *Home) DelRoom(name string) error {
	if !h.attached {
		return fmt.Errorf("home %q: %w", h.name, ErrInvalidHandle)
	}
	room, ok := h.rooms.remove(lookupKey(name))
	if !ok {
		return fmt.Errorf("room %q in home %q: %w", name, h.name, ErrNotFound)
	}
	room.detach()
	h.hub.logger.Debug("room deleted", "home", h.name, "room", room.name)
	return nil
}

// GetRoom returns the Room with the given name.
func (h *Home) GetRoom(name string) (*Room, error) {
	if !h.attached {
		return nil, fmt.Errorf("home %q: %w", h.name, ErrInvalidHandle)
	}
	room, ok := h.rooms.get(lookupKey(name))
	if !ok {
		return nil, fmt.Errorf("room %q in home %q: %w", name, h.name, ErrNotFound)
	}
	return room, nil
}

// RoomCount returns the number of rooms.
func (h *Home) RoomCount() int {
	return h.rooms.len()
}

// Rooms returns a cursor over the rooms in insertion order.
func (h *Home) Rooms() *Cursor[*Room] {
	return newCursor(h.rooms.snapshot(), func(name string) (*Room, bool) {
		if !h.attached {
			return nil, false
		}
		return h.rooms.get(name)
	})
}

func (h *Home) detach() {
	for _, room := range h.rooms.values() {
		room.detach()
	}
	h.rooms.clear()
	h.attached = false
}
