// Package influxdb stores device readings in InfluxDB v2.
//
// Thermometer temperatures go to the device_metrics measurement, tagged
// with the metric name; socket power draw goes to energy. Both carry home,
// room, device and kind tags, so a Flux query can slice by any location:
//
//	from(bucket: "metrics")
//	  |> range(start: -1h)
//	  |> filter(fn: (r) => r._measurement == "energy" and r.room == "Kitchen")
//
// Writes never block the sampler. The telemetry sink flushes once per
// sweep, and batch failures reach the SetOnError callback.
package influxdb
