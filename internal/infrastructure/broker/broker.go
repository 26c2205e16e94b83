package broker

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/config"
)

// listenerID names the single TCP listener.
const listenerID = "smarthub-tcp"

// Broker is an in-process MQTT broker.
type Broker struct {
	server   *mochi.Server
	listener *listeners.TCP
	address  string
	auth     config.MQTTAuthConfig

	mu      sync.Mutex
	started bool
	closed  bool
}

// New creates a broker that will listen on the configured broker host and
// port. Port 0 picks a free port; read it back with Addr after Start.
//
// Parameters:
//   - cfg: MQTT configuration (broker address and optional auth)
//   - logger: Broker log output; nil discards it
func New(cfg config.MQTTConfig, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Broker{
		server: mochi.New(&mochi.Options{
			Logger: logger.With("component", "broker"),
		}),
		address: net.JoinHostPort(cfg.Broker.Host, strconv.Itoa(cfg.Broker.Port)),
		auth:    cfg.Auth,
	}
}

// Start installs the auth hook, opens the TCP listener and begins serving.
// It returns once the listener is accepting connections.
func (b *Broker) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}
	if b.closed {
		return fmt.Errorf("%w: broker closed", ErrStartFailed)
	}

	if err := b.addAuthHook(); err != nil {
		return fmt.Errorf("%w: auth hook: %w", ErrStartFailed, err)
	}

	b.listener = listeners.NewTCP(listeners.Config{ID: listenerID, Address: b.address})
	if err := b.server.AddListener(b.listener); err != nil {
		return fmt.Errorf("%w: listener %s: %w", ErrStartFailed, b.address, err)
	}

	if err := b.server.Serve(); err != nil {
		return fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	b.started = true
	return nil
}

// addAuthHook requires the configured credentials, or allows everyone when
// none are configured.
func (b *Broker) addAuthHook() error {
	if b.auth.Username == "" {
		return b.server.AddHook(new(auth.AllowHook), nil)
	}

	return b.server.AddHook(new(auth.Hook), &auth.Options{
		Ledger: &auth.Ledger{
			Auth: auth.AuthRules{
				{
					Username: auth.RString(b.auth.Username),
					Password: auth.RString(b.auth.Password),
					Allow:    true,
				},
			},
		},
	})
}

// Addr returns the address the listener is bound to.
func (b *Broker) Addr() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return "", ErrNotStarted
	}
	return b.listener.Address(), nil
}

// Close stops the listener and disconnects every client. Safe to call twice.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if err := b.server.Close(); err != nil {
		return fmt.Errorf("broker: close: %w", err)
	}
	return nil
}
