// Package config loads the hub's YAML configuration.
//
// Values come from three layers, later ones winning: built-in defaults,
// the YAML file, and SMARTHUB_* environment variables such as
// SMARTHUB_API_PORT or SMARTHUB_MQTT_PASSWORD. Durations are written the
// Go way ("30s", "1m"). Keep secrets in the environment.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	addr := cfg.MQTT.Broker.Address()
package config
