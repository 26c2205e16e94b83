// Package broker runs an embedded MQTT broker for single-box installs.
//
// When mqtt.embedded.enabled is set the hub starts this broker on the
// configured broker host and port, then connects to it with the regular
// mqtt client. External tools (dashboards, mosquitto_sub) can connect to
// the same listener.
//
// If mqtt.auth.username is set, only clients presenting those credentials
// are accepted. Otherwise the broker allows anonymous connections.
package broker
