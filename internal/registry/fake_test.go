package registry

import (
	"context"
	"errors"
	"sync"
)

var errUnreachable = errors.New("dial udp: connection refused")

// fakeConnector hands out in-memory clients keyed by server address.
type fakeConnector struct {
	mu      sync.Mutex
	values  map[string]float64
	down    map[string]bool
	created int
	closed  int
	on      map[string]bool
	fail    error
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		values: make(map[string]float64),
		down:   make(map[string]bool),
		on:     make(map[string]bool),
	}
}

func (c *fakeConnector) Thermometer(server string) (ThermometerClient, error) {
	if c.fail != nil {
		return nil, c.fail
	}
	c.created++
	return &fakeClient{conn: c, server: server}, nil
}

func (c *fakeConnector) Socket(server string) (SocketClient, error) {
	if c.fail != nil {
		return nil, c.fail
	}
	c.created++
	return &fakeClient{conn: c, server: server}, nil
}

type fakeClient struct {
	conn   *fakeConnector
	server string
}

func (f *fakeClient) read() (float64, error) {
	f.conn.mu.Lock()
	defer f.conn.mu.Unlock()
	if f.conn.down[f.server] {
		return 0, errUnreachable
	}
	return f.conn.values[f.server], nil
}

func (f *fakeClient) Temperature(context.Context) (float64, error) { return f.read() }
func (f *fakeClient) Power(context.Context) (float64, error)       { return f.read() }

func (f *fakeClient) TurnOn(context.Context) error  { return f.set(true) }
func (f *fakeClient) TurnOff(context.Context) error { return f.set(false) }

func (f *fakeClient) set(on bool) error {
	f.conn.mu.Lock()
	defer f.conn.mu.Unlock()
	if f.conn.down[f.server] {
		return errUnreachable
	}
	f.conn.on[f.server] = on
	return nil
}

func (f *fakeClient) Close() error {
	f.conn.mu.Lock()
	defer f.conn.mu.Unlock()
	f.conn.closed++
	return nil
}
