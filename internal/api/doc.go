// Package api implements the HTTP REST API and WebSocket server for the
// smart home hub.
//
// This package provides:
//   - REST endpoints for home, room and device CRUD
//   - Device reads (temperature, power) and socket on/off commands
//   - A WebSocket reading stream with per-client home, room and kind filters
//   - Audit trail listing when the database is enabled
//   - Middleware for request IDs, access logs, panic recovery, CORS and body limits
//
// # Architecture
//
// Every handler runs its registry work inside registry.Shared.Do, so the
// API, the telemetry sampler and the MQTT control path never touch the hub
// at the same time. Device calls made under the lock are bounded by the
// request context plus the configured device read timeout.
//
// Names travel in the URL path and are percent-decoded, so a room called
// "a/b" is addressed as /rooms/a%2Fb.
//
// # Errors
//
// Errors are returned as {"status","code","message"}. Registry sentinels map
// to HTTP as follows: ErrNotFound 404, ErrDuplicate 409, ErrInvalidName,
// ErrInvalidDescription and ErrInvalidServer 400, ErrConnection 502. Asking
// a socket for its temperature (or a thermometer to switch) is 409
// device_not_compatible.
package api
