package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/smarthome-hub/internal/registry"
)

const mib = 1 << 20

// HubMetrics is the /metrics response.
type HubMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	Stream        StreamMetrics  `json:"stream"`
	MQTT          MQTTMetrics    `json:"mqtt"`
	Registry      registry.Stats `json:"registry"`
	Database      StoreMetrics   `json:"database"`
}

// RuntimeMetrics reports Go runtime figures.
type RuntimeMetrics struct {
	Goroutines int     `json:"goroutines"`
	HeapMiB    float64 `json:"heap_mib"`
	NumGC      uint32  `json:"num_gc"`
}

// StreamMetrics reports reading stream connections.
type StreamMetrics struct {
	Clients     int `json:"clients"`
	Subscribers int `json:"subscribers"`
}

// MQTTMetrics reports the control-plane connection.
type MQTTMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// StoreMetrics reports the audit store. Zero when the database is off.
type StoreMetrics struct {
	Enabled       bool   `json:"enabled"`
	SchemaVersion string `json:"schema_version,omitempty"`
	Open          int    `json:"open_connections"`
	InUse         int    `json:"in_use"`
	WaitCount     int64  `json:"wait_count"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m := HubMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines: runtime.NumGoroutine(),
			HeapMiB:    float64(mem.HeapAlloc) / mib,
			NumGC:      mem.NumGC,
		},
		Stream: StreamMetrics{
			Clients:     s.stream.ClientCount(),
			Subscribers: s.stream.SubscriberCount(),
		},
	}
	if s.mqtt != nil {
		m.MQTT = MQTTMetrics{Enabled: true, Connected: s.mqtt.IsConnected()}
	}

	if err := s.shared.Do(func(hub *registry.Hub) error {
		m.Registry = hub.Stats()
		return nil
	}); err != nil {
		s.failRegistry(w, r, err)
		return
	}

	if s.db != nil {
		version, err := s.db.SchemaVersion(r.Context())
		if err != nil {
			s.logger.Warn("reading schema version failed", "error", err)
		}
		pool := s.db.Stats()
		m.Database = StoreMetrics{
			Enabled:       true,
			SchemaVersion: version,
			Open:          pool.OpenConnections,
			InUse:         pool.InUse,
			WaitCount:     pool.WaitCount,
		}
	}

	respond(w, http.StatusOK, m)
}
