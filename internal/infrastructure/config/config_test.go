package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: "test-site"
  name: "Little Home"
devices:
  read_timeout: 500ms
  sample_interval: 1m
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 2s
mqtt:
  enabled: true
  embedded:
    enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
  timeouts:
    read: 15s
    idle: 2m
websocket:
  ping_interval: 20s
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.Devices.ReadTimeout != 500*time.Millisecond {
		t.Errorf("Devices.ReadTimeout = %v, want 500ms", cfg.Devices.ReadTimeout)
	}

	if cfg.Devices.SampleInterval != time.Minute {
		t.Errorf("Devices.SampleInterval = %v, want 1m", cfg.Devices.SampleInterval)
	}

	if cfg.Database.BusyTimeout != 2*time.Second {
		t.Errorf("Database.BusyTimeout = %v, want 2s", cfg.Database.BusyTimeout)
	}

	if cfg.API.Timeouts.Read != 15*time.Second || cfg.API.Timeouts.Idle != 2*time.Minute {
		t.Errorf("API.Timeouts = %+v, want read 15s idle 2m", cfg.API.Timeouts)
	}

	if cfg.API.Timeouts.Write != 30*time.Second {
		t.Errorf("API.Timeouts.Write = %v, want default 30s", cfg.API.Timeouts.Write)
	}

	if cfg.WebSocket.PingInterval != 20*time.Second || cfg.WebSocket.PongTimeout != 10*time.Second {
		t.Errorf("WebSocket = %+v, want ping 20s pong 10s", cfg.WebSocket)
	}

	if !cfg.MQTT.Embedded.Enabled {
		t.Error("MQTT.Embedded.Enabled = false, want true")
	}

	if got := cfg.MQTT.Broker.Address(); got != "localhost:1883" {
		t.Errorf("Broker.Address() = %q, want %q", got, "localhost:1883")
	}
}

func TestLoad_KeepsDefaultsForOmittedSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, "site:\n  id: \"only-site\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Devices.ReadTimeout != 3*time.Second {
		t.Errorf("Devices.ReadTimeout = %v, want 3s", cfg.Devices.ReadTimeout)
	}

	if cfg.Logging.File.MaxSize != 100 {
		t.Errorf("Logging.File.MaxSize = %d, want 100", cfg.Logging.File.MaxSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "devices:\n  read_timeout: 3\n"))
	if err == nil {
		t.Error("Load() expected error for unit-less duration, got nil")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SMARTHUB_API_PORT", "9191")
	cfg, err := Load(writeConfig(t, "api:\n  port: 8080\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Port != 9191 {
		t.Errorf("API.Port = %d, want 9191", cfg.API.Port)
	}

	t.Setenv("SMARTHUB_API_PORT", "ninety")
	if _, err := Load(writeConfig(t, "api:\n  port: 8080\n")); err == nil {
		t.Error("Load() expected error for malformed SMARTHUB_API_PORT, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: ""
database:
  path: "/tmp/test.db"
api:
  port: 8080
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Site:     SiteConfig{ID: "site-001"},
			Devices:  DevicesConfig{ReadTimeout: time.Second},
			Database: DatabaseConfig{Enabled: true, Path: "/data/smarthub.db"},
			MQTT:     MQTTConfig{QoS: 1},
			API:      APIConfig{Port: 8080},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30 * time.Second,
				PongTimeout:    10 * time.Second,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing site ID", mutate: func(c *Config) { c.Site.ID = "" }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "database disabled without path", mutate: func(c *Config) {
			c.Database = DatabaseConfig{}
		}},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid broker port", mutate: func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.Broker.Port = 0
		}, wantErr: true},
		{name: "invalid port low", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "invalid port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "zero read timeout", mutate: func(c *Config) { c.Devices.ReadTimeout = 0 }, wantErr: true},
		{name: "negative sample interval", mutate: func(c *Config) { c.Devices.SampleInterval = -time.Second }, wantErr: true},
		{name: "influxdb without url", mutate: func(c *Config) {
			c.InfluxDB = InfluxDBConfig{Enabled: true, Bucket: "b"}
		}, wantErr: true},
		{name: "file output without path", mutate: func(c *Config) { c.Logging.Output = "file" }, wantErr: true},
		{name: "zero ping interval", mutate: func(c *Config) { c.WebSocket.PingInterval = 0 }, wantErr: true},
		{name: "zero message size", mutate: func(c *Config) { c.WebSocket.MaxMessageSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// envOf returns a lookup over a fixed set of variables.
func envOf(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	err := applyEnvOverrides(cfg, envOf(map[string]string{
		"SMARTHUB_SITE_NAME":               "Little Home",
		"SMARTHUB_DATABASE_PATH":           "/custom/path.db",
		"SMARTHUB_MQTT_HOST":               "mqtt.example.com",
		"SMARTHUB_MQTT_PORT":               "8883",
		"SMARTHUB_MQTT_USERNAME":           "testuser",
		"SMARTHUB_MQTT_PASSWORD":           "testpass",
		"SMARTHUB_API_HOST":                "192.168.1.1",
		"SMARTHUB_API_PORT":                "9090",
		"SMARTHUB_DEVICES_READ_TIMEOUT":    "750ms",
		"SMARTHUB_DEVICES_SAMPLE_INTERVAL": "0s",
		"SMARTHUB_INFLUXDB_URL":            "http://influx:8086",
		"SMARTHUB_INFLUXDB_TOKEN":          "secret-token",
		"SMARTHUB_LOG_LEVEL":               "debug",
	}))
	if err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	checks := []struct {
		name      string
		got, want any
	}{
		{"Site.Name", cfg.Site.Name, "Little Home"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Address", cfg.MQTT.Broker.Address(), "mqtt.example.com:8883"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
		{"API.Port", cfg.API.Port, 9090},
		{"Devices.ReadTimeout", cfg.Devices.ReadTimeout, 750 * time.Millisecond},
		{"Devices.SampleInterval", cfg.Devices.SampleInterval, time.Duration(0)},
		{"InfluxDB.URL", cfg.InfluxDB.URL, "http://influx:8086"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestApplyEnvOverrides_ReportsMalformedValues(t *testing.T) {
	cfg := defaultConfig()

	err := applyEnvOverrides(cfg, envOf(map[string]string{
		"SMARTHUB_API_PORT":             "not-a-port",
		"SMARTHUB_DEVICES_READ_TIMEOUT": "soon",
		"SMARTHUB_LOG_LEVEL":            "warn",
	}))
	if err == nil {
		t.Fatal("applyEnvOverrides() error = nil, want error")
	}
	for _, name := range []string{"SMARTHUB_API_PORT", "SMARTHUB_DEVICES_READ_TIMEOUT"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not name %s", err, name)
		}
	}

	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want well-formed override applied", cfg.Logging.Level)
	}
}

func TestApplyEnvOverrides_EmptyValueIgnored(t *testing.T) {
	cfg := defaultConfig()
	if err := applyEnvOverrides(cfg, envOf(map[string]string{"SMARTHUB_API_HOST": ""})); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host = %q, want default", cfg.API.Host)
	}
}

func TestBrokerAddress_IPv6(t *testing.T) {
	b := MQTTBrokerConfig{Host: "::1", Port: 1883}
	if got := b.Address(); got != "[::1]:1883" {
		t.Errorf("Address() = %q, want [::1]:1883", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate, got %v", err)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
}
