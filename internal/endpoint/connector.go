package endpoint

import (
	"time"

	"github.com/nerrad567/smarthome-hub/internal/registry"
)

// DefaultReadTimeout bounds a device request whose context has no deadline.
const DefaultReadTimeout = 3 * time.Second

// Config holds endpoint client settings.
type Config struct {
	// ReadTimeout bounds a request when the caller's context has no deadline.
	// Zero means DefaultReadTimeout.
	ReadTimeout time.Duration
}

func (c Config) readTimeout() time.Duration {
	if c.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return c.ReadTimeout
}

// Connector creates UDP thermometer and gRPC socket clients.
// It implements registry.Connector.
type Connector struct {
	cfg Config
}

// NewConnector creates a Connector with the given settings.
func NewConnector(cfg Config) *Connector {
	return &Connector{cfg: cfg}
}

// Thermometer returns a UDP client for the thermometer at server.
func (c *Connector) Thermometer(server string) (registry.ThermometerClient, error) {
	return NewThermometerClient(server, c.cfg), nil
}

// Socket returns a gRPC client for the socket at server.
func (c *Connector) Socket(server string) (registry.SocketClient, error) {
	return NewSocketClient(server, c.cfg)
}

var _ registry.Connector = (*Connector)(nil)
