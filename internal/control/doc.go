// Package control switches sockets on and off from MQTT commands.
//
// The controller subscribes to smarthub/command/{home}/{room}/{socket}.
// A command payload looks like:
//
//	{"command": "on", "request_id": "abc"}
//
// Only "command" is required. The result is published (not retained) to
// smarthub/ack/{home}/{room}/{socket}:
//
//	{"request_id":"abc","command":"on","success":true,"timestamp":"..."}
//
// Failures carry "error" and a machine-readable "code" using the same
// vocabulary as the REST API: not_found, device_not_compatible,
// bad_request, connection_error, internal_error.
package control
