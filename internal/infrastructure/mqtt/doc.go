// Package mqtt is the hub's MQTT client, built on paho.mqtt.golang.
//
// # Topics
//
// Every device topic has the form smarthub/{category}/{home}/{room}/{device}.
// Telemetry publishes retained readings under "state", the control
// subscriber listens under "command" and answers under "ack". Names are
// escaped with EscapeSegment so a '/' or wildcard character in a name never
// changes the topic structure.
//
// # Presence
//
// The client announces itself with a retained Status on
// smarthub/system/status: online after each connect, offline with reason
// graceful_shutdown on Close, and offline with reason unexpected_disconnect
// from the broker-held will when the hub vanishes.
//
// The broker may be external (Mosquitto) or the embedded one from the
// broker package.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.State("Little Home", "Kitchen", "Thermo")
//	err = client.PublishJSON(topic, reading, true)
package mqtt
