package telemetry

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/smarthome-hub/internal/registry"
)

// Units reported with a reading.
const (
	UnitCelsius = "celsius"
	UnitWatts   = "watts"
)

// Reading is one sampled device value.
type Reading struct {
	Home      string
	Room      string
	Device    string
	Kind      registry.Kind
	Value     float64
	Unit      string
	Err       error
	Timestamp time.Time
}

// OK reports whether the device answered.
func (r Reading) OK() bool { return r.Err == nil }

// readingJSON is the wire form shared by MQTT and WebSocket subscribers.
type readingJSON struct {
	Home      string   `json:"home"`
	Room      string   `json:"room"`
	Device    string   `json:"device"`
	Kind      string   `json:"kind"`
	Value     *float64 `json:"value,omitempty"`
	Unit      string   `json:"unit"`
	Error     string   `json:"error,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// MarshalJSON encodes the reading. Failed reads carry "error" and no "value".
func (r Reading) MarshalJSON() ([]byte, error) {
	out := readingJSON{
		Home:      r.Home,
		Room:      r.Room,
		Device:    r.Device,
		Kind:      r.Kind.String(),
		Unit:      r.Unit,
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	} else {
		v := r.Value
		out.Value = &v
	}
	return json.Marshal(out)
}
