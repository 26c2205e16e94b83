package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/config"
)

// Logger is the logging surface the client reports handler failures and
// reconnects on. *logging.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageHandler receives one message. paho calls handlers from its own
// goroutine, so they must not block for long. A returned error is logged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client is the hub's MQTT connection. It publishes readings and command
// acknowledgements, receives socket commands, and announces itself on the
// system status topic.
//
// The session is clean, so the client remembers its subscriptions and
// repeats them after every reconnect. Methods are safe for concurrent use.
type Client struct {
	client   pahomqtt.Client
	clientID string
	qos      byte

	connected atomic.Bool

	mu           sync.RWMutex
	subs         map[string]subscription
	logger       Logger
	onConnect    func()
	onDisconnect func(error)
}

// Connect dials the broker in cfg and waits up to connectTimeout for the
// first CONNACK. paho keeps retrying with backoff after a later loss.
//
// Parameters:
//   - cfg: MQTT section of the hub config
//
// Returns:
//   - *Client: Connected client
//   - error: ErrConnectionFailed, wrapping ErrTimeout when the broker
//     never answered
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		clientID: cfg.Broker.ClientID,
		qos:      byte(cfg.QoS), //nolint:gosec // Validated to 0-2
		subs:     make(map[string]subscription),
		logger:   noopLogger{},
	}

	opts := clientOptions(cfg).
		SetOnConnectHandler(func(pahomqtt.Client) { c.up() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.down(err) }).
		SetReconnectingHandler(func(_ pahomqtt.Client, o *pahomqtt.ClientOptions) {
			c.log().Info("MQTT reconnecting", "client_id", o.ClientID)
		})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w after %v", ErrConnectionFailed, ErrTimeout, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The on-connect handler runs asynchronously and may lag the token.
	c.connected.Store(true)
	return c, nil
}

// up runs on every (re)connect: it restores subscriptions and announces
// the hub as online.
func (c *Client) up() {
	c.connected.Store(true)

	c.mu.RLock()
	for topic, sub := range c.subs {
		c.client.Subscribe(topic, sub.qos, c.deliver(sub.handler))
	}
	fn := c.onConnect
	c.mu.RUnlock()

	c.client.Publish(Topics{}.SystemStatus(), c.qos, true, statusMessage(StatusOnline, c.clientID, ""))
	if fn != nil {
		fn()
	}
}

func (c *Client) down(err error) {
	c.connected.Store(false)

	c.mu.RLock()
	fn := c.onDisconnect
	c.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// Close publishes a graceful offline status and disconnects. Safe on a
// zero Client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		c.client.Publish(Topics{}.SystemStatus(), c.qos, true,
			statusMessage(StatusOffline, c.clientID, "graceful_shutdown")).WaitTimeout(publishTimeout)
	}
	c.client.Disconnect(disconnectQuiesceMS)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the connection is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client.IsConnected()
}

// SetOnConnect installs a callback run after every (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect installs a callback run when the connection drops. It
// is not called for Close.
func (c *Client) SetOnDisconnect(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// SetLogger replaces the default no-op logger.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// deliver adapts handler to paho, logging its error and containing a
// panic so one bad message cannot stop delivery.
func (c *Client) deliver(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("MQTT handler panicked", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log().Warn("MQTT handler failed", "topic", msg.Topic(), "error", err)
		}
	}
}
