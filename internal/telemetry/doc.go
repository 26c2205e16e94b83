// Package telemetry samples every device in the hub on an interval and
// fans the readings out to sinks.
//
// A sample first lists every device under one short registry.Shared lock,
// then reads them one at a time, taking the lock again per device so API
// requests interleave with a long sweep. The batch goes to every sink
// outside the lock:
//
//   - MQTTSink publishes a retained state message per device
//   - InfluxSink writes device_metrics and energy points
//
// The API's reading stream is a Sink too and is wired in by the caller.
//
// A failed read still produces a Reading with Err set, so subscribers can
// see that a device stopped answering.
package telemetry
