package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/smarthome-hub/internal/audit"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/mqtt"
	"github.com/nerrad567/smarthome-hub/internal/registry"
)

// DefaultTimeout bounds a single on/off call when none is configured.
const DefaultTimeout = 5 * time.Second

// Error codes carried in acknowledgements.
const (
	CodeNotFound            = "not_found"
	CodeDeviceNotCompatible = "device_not_compatible"
	CodeBadRequest          = "bad_request"
	CodeConnectionError     = "connection_error"
	CodeInternalError       = "internal_error"
)

// Client is the MQTT surface the controller needs.
// This is typically implemented by *mqtt.Client.
type Client interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	PublishJSON(topic string, v any, retained bool) error
}

// Logger is the logging surface used by the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Ack is the acknowledgement published after each command.
type Ack struct {
	RequestID string `json:"request_id,omitempty"`
	Command   string `json:"command,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Config holds configuration for the controller.
type Config struct {
	// Client is the connected MQTT client.
	Client Client

	// Shared is the hub commands are executed against.
	Shared *registry.Shared

	// Recorder records executed commands. Nil disables auditing.
	Recorder *audit.Recorder

	// QoS for the command subscription. Default: 1
	QoS byte

	// Timeout bounds each on/off call. Default: 5 seconds.
	Timeout time.Duration
}

// Controller executes socket commands received over MQTT.
type Controller struct {
	client   Client
	shared   *registry.Shared
	recorder *audit.Recorder
	qos      byte
	timeout  time.Duration
	logger   Logger
	now      func() time.Time
}

// New creates a controller. Call Start to subscribe.
func New(cfg Config) *Controller {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	qos := cfg.QoS
	if qos == 0 {
		qos = 1
	}

	return &Controller{
		client:   cfg.Client,
		shared:   cfg.Shared,
		recorder: cfg.Recorder,
		qos:      qos,
		timeout:  timeout,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for this controller.
func (c *Controller) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Start subscribes to every socket command topic.
func (c *Controller) Start() error {
	topic := mqtt.Topics{}.AllCommands()
	if err := c.client.Subscribe(topic, c.qos, c.HandleMessage); err != nil {
		return fmt.Errorf("control: subscribing to %s: %w", topic, err)
	}
	c.logger.Info("control subscribed", "topic", topic)
	return nil
}

// Stop removes the command subscription.
func (c *Controller) Stop() error {
	if err := c.client.Unsubscribe(mqtt.Topics{}.AllCommands()); err != nil {
		return fmt.Errorf("control: unsubscribing: %w", err)
	}
	return nil
}

// HandleMessage executes one command message and publishes its ack.
// It matches mqtt.MessageHandler.
func (c *Controller) HandleMessage(topic string, payload []byte) error {
	dt, err := mqtt.ParseDeviceTopic(topic)
	if err != nil || dt.Category != mqtt.CategoryCommand {
		// Nowhere to send an ack for a topic we cannot parse.
		return fmt.Errorf("control: ignoring topic %q: %w", topic, mqtt.ErrInvalidTopic)
	}

	cmd, err := ParseCommand(payload)
	if err == nil {
		err = c.execute(dt, cmd.Name)
	}

	ack := c.buildAck(cmd, err)
	ackTopic := mqtt.Topics{}.Ack(dt.Home, dt.Room, dt.Device)
	if pubErr := c.client.PublishJSON(ackTopic, ack, false); pubErr != nil {
		c.logger.Warn("control ack publish failed", "topic", ackTopic, "error", pubErr)
	}

	if err != nil {
		c.logger.Warn("control command failed",
			"home", dt.Home, "room", dt.Room, "device", dt.Device,
			"command", cmd.Name, "code", ack.Code, "error", err)
		return nil
	}

	c.logger.Info("control command executed",
		"home", dt.Home, "room", dt.Room, "device", dt.Device, "command", cmd.Name)
	c.recorder.Record(audit.ActionCommand, audit.EntitySocket,
		audit.EntityPath(dt.Home, dt.Room, dt.Device),
		map[string]any{"command": cmd.Name, "request_id": cmd.RequestID})
	return nil
}

// execute resolves the socket and switches it under the Shared lock.
func (c *Controller) execute(dt mqtt.DeviceTopic, command string) error {
	return c.shared.Do(func(hub *registry.Hub) error {
		home, err := hub.GetHome(dt.Home)
		if err != nil {
			return err
		}
		room, err := home.GetRoom(dt.Room)
		if err != nil {
			return err
		}
		device, err := room.GetDevice(dt.Device)
		if err != nil {
			return err
		}
		socket, ok := device.(*registry.Socket)
		if !ok {
			return fmt.Errorf("%w: %q is a %s", ErrNotSocket, dt.Device, device.Kind())
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		if command == CommandOn {
			return socket.TurnOn(ctx)
		}
		return socket.TurnOff(ctx)
	})
}

func (c *Controller) buildAck(cmd Command, err error) Ack {
	ack := Ack{
		RequestID: cmd.RequestID,
		Command:   cmd.Name,
		Success:   err == nil,
		Timestamp: c.now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		ack.Error = err.Error()
		ack.Code = errorCode(err)
	}
	return ack
}

// errorCode maps an execution error to an ack code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotSocket):
		return CodeDeviceNotCompatible
	case errors.Is(err, ErrInvalidCommand):
		return CodeBadRequest
	case errors.Is(err, registry.ErrConnection):
		return CodeConnectionError
	default:
		return CodeInternalError
	}
}
