package registry

import (
	"context"
	"errors"
	"io"
)

// ThermometerClient reads a remote temperature sensor.
type ThermometerClient interface {
	// Temperature returns the sensor's instantaneous reading in degrees Celsius.
	Temperature(ctx context.Context) (float64, error)
}

// SocketClient talks to a remote power socket.
//
// TurnOn and TurnOff return once the endpoint has accepted the command; they
// do not wait for the physical relay to switch.
type SocketClient interface {
	Power(ctx context.Context) (float64, error)
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
}

// Connector creates endpoint clients for device server addresses.
//
// Implementations must not perform network I/O when creating a client; the
// first request is what reaches the endpoint. Clients that hold resources
// may implement io.Closer and are closed when their device is removed.
type Connector interface {
	Thermometer(server string) (ThermometerClient, error)
	Socket(server string) (SocketClient, error)
}

// errNoConnector is reported by devices of a hub created without a Connector.
var errNoConnector = errors.New("no connector configured")

// offlineConnector is used when NewHub is given a nil Connector.
type offlineConnector struct{}

func (offlineConnector) Thermometer(string) (ThermometerClient, error) { return offlineClient{}, nil }
func (offlineConnector) Socket(string) (SocketClient, error)           { return offlineClient{}, nil }

type offlineClient struct{}

func (offlineClient) Temperature(context.Context) (float64, error) { return 0, errNoConnector }
func (offlineClient) Power(context.Context) (float64, error)       { return 0, errNoConnector }
func (offlineClient) TurnOn(context.Context) error                 { return errNoConnector }
func (offlineClient) TurnOff(context.Context) error                { return errNoConnector }

// closeClient releases a client if it holds resources.
func closeClient(client any) error {
	if c, ok := client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
