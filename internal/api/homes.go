package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/smarthome-hub/internal/audit"
	"github.com/nerrad567/smarthome-hub/internal/registry"
)

// HomeResponse is the JSON representation of a home.
type HomeResponse struct {
	Name      string `json:"name"`
	RoomCount int    `json:"room_count"`
}

// RoomResponse is the JSON representation of a room.
type RoomResponse struct {
	Name             string `json:"name"`
	Home             string `json:"home"`
	ThermometerCount int    `json:"thermometer_count"`
	SocketCount      int    `json:"socket_count"`
}

func homeResponse(h *registry.Home) HomeResponse {
	return HomeResponse{Name: h.Name(), RoomCount: h.RoomCount()}
}

func roomResponse(r *registry.Room) RoomResponse {
	return RoomResponse{
		Name:             r.Name(),
		Home:             r.Home(),
		ThermometerCount: r.ThermometerCount(),
		SocketCount:      r.SocketCount(),
	}
}

// pathName returns the decoded path parameter key.
// chi matches against RawPath when the request carried escaped slashes,
// so the parameter still needs unescaping in that case.
func pathName(r *http.Request, key string) (string, bool) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, true
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return "", false
	}
	return decoded, true
}

// pathNames resolves several path parameters, writing a 400 on failure.
func pathNames(w http.ResponseWriter, r *http.Request, keys ...string) ([]string, bool) {
	names := make([]string, len(keys))
	for i, key := range keys {
		name, ok := pathName(r, key)
		if !ok {
			badRequest(w, "malformed "+key+" in path")
			return nil, false
		}
		names[i] = name
	}
	return names, true
}

// record forwards an audit entry when auditing is enabled.
func (s *Server) record(action, entityType string, details map[string]any, names ...string) {
	s.recorder.Record(action, entityType, audit.EntityPath(names...), details)
}

// handleListHomes returns every home in registration order.
func (s *Server) handleListHomes(w http.ResponseWriter, r *http.Request) {
	var homes []HomeResponse
	err := s.shared.Do(func(hub *registry.Hub) error {
		homes = make([]HomeResponse, 0, hub.HomeCount())
		for h := range hub.Homes().All() {
			homes = append(homes, homeResponse(h))
		}
		return nil
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"homes": homes,
		"count": len(homes),
	})
}

// handleCreateHome registers a new home named by the path.
func (s *Server) handleCreateHome(w http.ResponseWriter, r *http.Request) {
	names, ok := pathNames(w, r, "home")
	if !ok {
		return
	}

	var resp HomeResponse
	err := s.shared.Do(func(hub *registry.Hub) error {
		h, err := hub.AddHome(names[0])
		if err != nil {
			return err
		}
		resp = homeResponse(h)
		return nil
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}

	s.record(audit.ActionCreate, audit.EntityHome, nil, resp.Name)
	respond(w, http.StatusCreated, resp)
}

// handleGetHome returns a single home.
func (s *Server) handleGetHome(w http.ResponseWriter, r *http.Request) {
	names, ok := pathNames(w, r, "home")
	if !ok {
		return
	}

	var resp HomeResponse
	err := s.shared.Do(func(hub *registry.Hub) error {
		h, err := hub.GetHome(names[0])
		if err != nil {
			return err
		}
		resp = homeResponse(h)
		return nil
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

// handleDeleteHome removes a home and everything under it.
func (s *Server) handleDeleteHome(w http.ResponseWriter, r *http.Request) {
	names, ok := pathNames(w, r, "home")
	if !ok {
		return
	}

	err := s.shared.Do(func(hub *registry.Hub) error {
		return hub.DelHome(names[0])
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}

	s.record(audit.ActionDelete, audit.EntityHome, nil, names[0])
	w.WriteHeader(http.StatusNoContent)
}

// handleListRooms returns every room of a home in registration order.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	names, ok := pathNames(w, r, "home")
	if !ok {
		return
	}

	var rooms []RoomResponse
	err := s.shared.Do(func(hub *registry.Hub) error {
		h, err := hub.GetHome(names[0])
		if err != nil {
			return err
		}
		rooms = make([]RoomResponse, 0, h.RoomCount())
		for room := range h.Rooms().All() {
			rooms = append(rooms, roomResponse(room))
		}
		return nil
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// handleCreateRoom adds a room to a home.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	names, ok := pathNames(w, r, "home", "room")
	if !ok {
		return
	}

	var resp RoomResponse
	err := s.shared.Do(func(hub *registry.Hub) error {
		h, err := hub.GetHome(names[0])
		if err != nil {
			return err
		}
		room, err := h.AddRoom(names[1])
		if err != nil {
			return err
		}
		resp = roomResponse(room)
		return nil
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}

	s.record(audit.ActionCreate, audit.EntityRoom, nil, resp.Home, resp.Name)
	respond(w, http.StatusCreated, resp)
}

// handleGetRoom returns a single room.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	names, ok := pathNames(w, r, "home", "room")
	if !ok {
		return
	}

	var resp RoomResponse
	err := s.shared.Do(func(hub *registry.Hub) error {
		room, err := lookupRoom(hub, names[0], names[1])
		if err != nil {
			return err
		}
		resp = roomResponse(room)
		return nil
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

// handleDeleteRoom removes a room and its devices.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	names, ok := pathNames(w, r, "home", "room")
	if !ok {
		return
	}

	err := s.shared.Do(func(hub *registry.Hub) error {
		h, err := hub.GetHome(names[0])
		if err != nil {
			return err
		}
		return h.DelRoom(names[1])
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}

	s.record(audit.ActionDelete, audit.EntityRoom, nil, names[0], names[1])
	w.WriteHeader(http.StatusNoContent)
}

// handleStats returns aggregate registry counts.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var stats registry.Stats
	err := s.shared.Do(func(hub *registry.Hub) error {
		stats = hub.Stats()
		return nil
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}
	respond(w, http.StatusOK, stats)
}

func lookupRoom(hub *registry.Hub, home, room string) (*registry.Room, error) {
	h, err := hub.GetHome(home)
	if err != nil {
		return nil, err
	}
	return h.GetRoom(room)
}
