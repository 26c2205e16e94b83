package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurements written by the hub.
const (
	MeasurementDeviceMetrics = "device_metrics"
	MeasurementEnergy        = "energy"
)

// DeviceTags locate a device. Every field becomes a tag.
type DeviceTags struct {
	Home   string
	Room   string
	Device string
	Kind   string
}

func (t DeviceTags) point(measurement string, ts time.Time) *write.Point {
	return write.NewPointWithMeasurement(measurement).
		AddTag("home", t.Home).
		AddTag("room", t.Room).
		AddTag("device", t.Device).
		AddTag("kind", t.Kind).
		SetTime(ts)
}

// WriteDeviceMetric queues a device_metrics point with the metric name as
// a tag, for example temperature_c.
//
// Example:
//
//	client.WriteDeviceMetric(tags, "temperature_c", 21.5, time.Now())
func (c *Client) WriteDeviceMetric(device DeviceTags, metric string, value float64, ts time.Time) {
	c.write(device.point(MeasurementDeviceMetrics, ts).
		AddTag("metric", metric).
		AddField("value", value))
}

// WriteEnergyMetric queues an energy point with a socket's draw in watts.
func (c *Client) WriteEnergyMetric(device DeviceTags, powerWatts float64, ts time.Time) {
	c.write(device.point(MeasurementEnergy, ts).AddField("power_watts", powerWatts))
}

func (c *Client) write(p *write.Point) {
	if c.closed.Load() {
		return
	}
	c.writeAPI.WritePoint(p)
}
