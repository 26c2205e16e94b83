package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/influxdb"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/mqtt"
	"github.com/nerrad567/smarthome-hub/internal/registry"
)

// Metric names written to InfluxDB.
const (
	MetricTemperature = "temperature_c"
	MetricPower       = "power_watts"
)

// Publisher is the MQTT surface used by MQTTSink.
// This is typically implemented by *mqtt.Client.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
	IsConnected() bool
}

// MQTTSink publishes each reading as a retained message on its state topic.
type MQTTSink struct {
	publisher Publisher
}

// NewMQTTSink creates a sink publishing through publisher.
func NewMQTTSink(publisher Publisher) *MQTTSink {
	return &MQTTSink{publisher: publisher}
}

// Send publishes every reading. Batches are skipped while disconnected.
func (m *MQTTSink) Send(_ context.Context, readings []Reading) error {
	if !m.publisher.IsConnected() {
		return mqtt.ErrNotConnected
	}

	var errs []error
	for _, r := range readings {
		topic := mqtt.Topics{}.State(r.Home, r.Room, r.Device)
		if err := m.publisher.PublishJSON(topic, r, true); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}

// MetricWriter is the InfluxDB surface used by InfluxSink.
// This is typically implemented by *influxdb.Client.
type MetricWriter interface {
	WriteDeviceMetric(device influxdb.DeviceTags, metric string, value float64, timestamp time.Time)
	WriteEnergyMetric(device influxdb.DeviceTags, powerWatts float64, timestamp time.Time)
	Flush()
}

// InfluxSink writes successful readings as InfluxDB points.
// Thermometers go to device_metrics, sockets to energy.
type InfluxSink struct {
	writer MetricWriter
}

// NewInfluxSink creates a sink writing through writer.
func NewInfluxSink(writer MetricWriter) *InfluxSink {
	return &InfluxSink{writer: writer}
}

// Send queues a point per successful reading and flushes, so each sweep
// reaches InfluxDB as one batch. Failed reads are skipped.
func (s *InfluxSink) Send(_ context.Context, readings []Reading) error {
	for _, r := range readings {
		if !r.OK() {
			continue
		}

		tags := influxdb.DeviceTags{
			Home:   r.Home,
			Room:   r.Room,
			Device: r.Device,
			Kind:   r.Kind.String(),
		}
		switch r.Kind {
		case registry.KindThermometer:
			s.writer.WriteDeviceMetric(tags, MetricTemperature, r.Value, r.Timestamp)
		case registry.KindSocket:
			s.writer.WriteEnergyMetric(tags, r.Value, r.Timestamp)
		}
	}
	s.writer.Flush()
	return nil
}
