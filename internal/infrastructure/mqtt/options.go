package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/config"
)

const (
	connectTimeout      = 10 * time.Second
	publishTimeout      = 5 * time.Second
	keepAlive           = 60 * time.Second
	disconnectQuiesceMS = 1000

	maxQoS = 2
)

// clientOptions maps the hub config onto paho options. The will marks the
// hub offline if it drops without Close.
func clientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	scheme := "tcp://"
	if cfg.Broker.TLS {
		scheme = "ssl://"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(scheme+cfg.Broker.Address()).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(cfg.Reconnect.InitialDelay).
		SetMaxReconnectInterval(cfg.Reconnect.MaxDelay).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetBinaryWill(Topics{}.SystemStatus(),
			statusMessage(StatusOffline, cfg.Broker.ClientID, "unexpected_disconnect"), 1, true)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username).SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// Hub status values on the system status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Status is the retained message on smarthub/system/status.
type Status struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func statusMessage(status, clientID, reason string) []byte {
	data, _ := json.Marshal(Status{ //nolint:errchkjson // Strings only
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return data
}
