package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/influxdb"
	"github.com/nerrad567/smarthome-hub/internal/registry"
)

var errUnreachable = errors.New("unreachable")

// fakeConnector hands out clients that return a fixed value per server.
// Servers listed in down fail every read. When gate is set, each read
// reports its server on started and then waits for a value on gate.
type fakeConnector struct {
	values  map[string]float64
	down    map[string]bool
	started chan string
	gate    chan struct{}
}

func (c *fakeConnector) Thermometer(server string) (registry.ThermometerClient, error) {
	return &fakeClient{conn: c, server: server}, nil
}

func (c *fakeConnector) Socket(server string) (registry.SocketClient, error) {
	return &fakeClient{conn: c, server: server}, nil
}

type fakeClient struct {
	conn   *fakeConnector
	server string
}

func (f *fakeClient) read(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.conn.gate != nil {
		f.conn.started <- f.server
		select {
		case <-f.conn.gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if f.conn.down[f.server] {
		return 0, errUnreachable
	}
	return f.conn.values[f.server], nil
}

func (f *fakeClient) Temperature(ctx context.Context) (float64, error) { return f.read(ctx) }
func (f *fakeClient) Power(ctx context.Context) (float64, error)       { return f.read(ctx) }
func (f *fakeClient) TurnOn(context.Context) error                     { return nil }
func (f *fakeClient) TurnOff(context.Context) error                    { return nil }

// fakePublisher records PublishJSON calls.
type fakePublisher struct {
	mu        sync.Mutex
	connected bool
	fail      error
	topics    []string
	payloads  []any
	retained  []bool
}

func (p *fakePublisher) PublishJSON(topic string, v any, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, v)
	p.retained = append(p.retained, retained)
	return nil
}

func (p *fakePublisher) IsConnected() bool { return p.connected }

// metricCall is one recorded MetricWriter call.
type metricCall struct {
	measurement string
	tags        influxdb.DeviceTags
	metric      string
	value       float64
	timestamp   time.Time
}

type fakeWriter struct {
	calls   []metricCall
	flushes int
}

func (w *fakeWriter) Flush() { w.flushes++ }

func (w *fakeWriter) WriteDeviceMetric(device influxdb.DeviceTags, metric string, value float64, ts time.Time) {
	w.calls = append(w.calls, metricCall{influxdb.MeasurementDeviceMetrics, device, metric, value, ts})
}

func (w *fakeWriter) WriteEnergyMetric(device influxdb.DeviceTags, powerWatts float64, ts time.Time) {
	w.calls = append(w.calls, metricCall{influxdb.MeasurementEnergy, device, "", powerWatts, ts})
}
