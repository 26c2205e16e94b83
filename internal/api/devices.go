package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nerrad567/smarthome-hub/internal/audit"
	"github.com/nerrad567/smarthome-hub/internal/registry"
)

// CreateDeviceRequest is the body for adding a thermometer or socket.
type CreateDeviceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Server      string `json:"server"`
}

// DeviceResponse is the JSON representation of a device.
type DeviceResponse struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Server      string `json:"server"`
}

func deviceResponse(d registry.Device) DeviceResponse {
	return DeviceResponse{
		Name:        d.Name(),
		Kind:        d.Kind().String(),
		Description: d.Description(),
		Server:      d.Server(),
	}
}

func lookupDevice(hub *registry.Hub, home, room, device string) (registry.Device, error) {
	rm, err := lookupRoom(hub, home, room)
	if err != nil {
		return nil, err
	}
	return rm.GetDevice(device)
}

// handleListDevices returns every device in a room, thermometers first.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	names, ok := pathNames(w, r, "home", "room")
	if !ok {
		return
	}

	var devices []DeviceResponse
	err := s.shared.Do(func(hub *registry.Hub) error {
		rm, err := lookupRoom(hub, names[0], names[1])
		if err != nil {
			return err
		}
		devices = make([]DeviceResponse, 0, rm.DeviceCount())
		for d := range rm.Devices().All() {
			devices = append(devices, deviceResponse(d))
		}
		return nil
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleCreateThermometer adds a thermometer to a room.
func (s *Server) handleCreateThermometer(w http.ResponseWriter, r *http.Request) {
	s.createDevice(w, r, registry.KindThermometer)
}

// handleCreateSocket adds a socket to a room.
func (s *Server) handleCreateSocket(w http.ResponseWriter, r *http.Request) {
	s.createDevice(w, r, registry.KindSocket)
}

func (s *Server) createDevice(w http.ResponseWriter, r *http.Request, kind registry.Kind) {
	names, ok := pathNames(w, r, "home", "room")
	if !ok {
		return
	}

	var req CreateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}

	var resp DeviceResponse
	err := s.shared.Do(func(hub *registry.Hub) error {
		rm, err := lookupRoom(hub, names[0], names[1])
		if err != nil {
			return err
		}
		var d registry.Device
		if kind == registry.KindThermometer {
			d, err = rm.AddThermometer(req.Name, req.Description, req.Server)
		} else {
			d, err = rm.AddSocket(req.Name, req.Description, req.Server)
		}
		if err != nil {
			return err
		}
		resp = deviceResponse(d)
		return nil
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}

	s.record(audit.ActionCreate, kind.String(), map[string]any{"server": resp.Server},
		names[0], names[1], resp.Name)
	respond(w, http.StatusCreated, resp)
}

// handleGetDevice returns a single device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	names, ok := pathNames(w, r, "home", "room", "device")
	if !ok {
		return
	}

	var resp DeviceResponse
	err := s.shared.Do(func(hub *registry.Hub) error {
		d, err := lookupDevice(hub, names[0], names[1], names[2])
		if err != nil {
			return err
		}
		resp = deviceResponse(d)
		return nil
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

// handleDeleteDevice removes a device and closes its endpoint connection.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	names, ok := pathNames(w, r, "home", "room", "device")
	if !ok {
		return
	}

	var kind registry.Kind
	err := s.shared.Do(func(hub *registry.Hub) error {
		rm, err := lookupRoom(hub, names[0], names[1])
		if err != nil {
			return err
		}
		d, err := rm.GetDevice(names[2])
		if err != nil {
			return err
		}
		kind = d.Kind()
		return rm.DelDevice(names[2])
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}

	s.record(audit.ActionDelete, kind.String(), nil, names...)
	w.WriteHeader(http.StatusNoContent)
}

// handleGetTemperature reads a thermometer.
func (s *Server) handleGetTemperature(w http.ResponseWriter, r *http.Request) {
	names, ok := pathNames(w, r, "home", "room", "device")
	if !ok {
		return
	}

	ctx, cancel := s.deviceContext(r)
	defer cancel()

	var value float64
	err := s.shared.Do(func(hub *registry.Hub) error {
		d, err := lookupDevice(hub, names[0], names[1], names[2])
		if err != nil {
			return err
		}
		t, ok := d.(*registry.Thermometer)
		if !ok {
			return fmt.Errorf("%w: %s %q has no temperature", errNotCompatible, d.Kind(), d.Name())
		}
		value, err = t.Temperature(ctx)
		return err
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]float64{"temperature": value})
}

// handleGetPower reads a socket's power draw.
func (s *Server) handleGetPower(w http.ResponseWriter, r *http.Request) {
	names, ok := pathNames(w, r, "home", "room", "device")
	if !ok {
		return
	}

	ctx, cancel := s.deviceContext(r)
	defer cancel()

	var value float64
	err := s.shared.Do(func(hub *registry.Hub) error {
		sock, err := lookupSocket(hub, names)
		if err != nil {
			return err
		}
		value, err = sock.Power(ctx)
		return err
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]float64{"power": value})
}

// handleTurnOn switches a socket on.
func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	s.switchSocket(w, r, "on")
}

// handleTurnOff switches a socket off.
func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	s.switchSocket(w, r, "off")
}

func (s *Server) switchSocket(w http.ResponseWriter, r *http.Request, command string) {
	names, ok := pathNames(w, r, "home", "room", "device")
	if !ok {
		return
	}

	ctx, cancel := s.deviceContext(r)
	defer cancel()

	err := s.shared.Do(func(hub *registry.Hub) error {
		sock, err := lookupSocket(hub, names)
		if err != nil {
			return err
		}
		if command == "on" {
			return sock.TurnOn(ctx)
		}
		return sock.TurnOff(ctx)
	})
	if err != nil {
		s.failRegistry(w, r, err)
		return
	}

	s.record(audit.ActionCommand, audit.EntitySocket, map[string]any{"command": command}, names...)
	w.WriteHeader(http.StatusNoContent)
}

func lookupSocket(hub *registry.Hub, names []string) (*registry.Socket, error) {
	d, err := lookupDevice(hub, names[0], names[1], names[2])
	if err != nil {
		return nil, err
	}
	sock, ok := d.(*registry.Socket)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q is not a socket", errNotCompatible, d.Kind(), d.Name())
	}
	return sock, nil
}
