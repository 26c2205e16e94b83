package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the hub configuration: defaults, then config.yaml, then
// SMARTHUB_* environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Devices   DevicesConfig   `yaml:"devices"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig names the installation. The ID tags log lines and metrics.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DevicesConfig controls how the hub talks to thermometers and sockets.
type DevicesConfig struct {
	// ReadTimeout bounds one device request. Default: 3s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// SampleInterval is the telemetry sweep period; zero disables
	// sampling. Default: 10s
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// DatabaseConfig locates the SQLite audit store.
type DatabaseConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Path        string        `yaml:"path"`
	WALMode     bool          `yaml:"wal_mode"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// MQTTConfig covers the broker connection used for commands, state and
// telemetry, and the optional in-process broker.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Embedded  MQTTEmbeddedConfig  `yaml:"embedded"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTEmbeddedConfig starts a broker inside the hub on the broker host and
// port; the hub then connects to it like any other client.
type MQTTEmbeddedConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MQTTBrokerConfig addresses the broker.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// Address returns host:port.
func (b MQTTBrokerConfig) Address() string {
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// MQTTAuthConfig holds broker credentials. Set the password through
// SMARTHUB_MQTT_PASSWORD.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig bounds the retry backoff. MaxAttempts zero retries
// forever.
type MQTTReconnectConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// APIConfig configures the REST and WebSocket listener.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig enables HTTPS with the given key pair.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig holds the http.Server timeouts.
type APITimeoutConfig struct {
	Read  time.Duration `yaml:"read"`
	Write time.Duration `yaml:"write"`
	Idle  time.Duration `yaml:"idle"`
}

// CORSConfig lists what browsers may send. No origins means any origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig configures the reading stream.
type WebSocketConfig struct {
	Path           string        `yaml:"path"`
	MaxMessageSize int           `yaml:"max_message_size"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongTimeout    time.Duration `yaml:"pong_timeout"`
}

// InfluxDBConfig configures the telemetry time-series sink.
type InfluxDBConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	Token         string        `yaml:"token"`
	Org           string        `yaml:"org"`
	Bucket        string        `yaml:"bucket"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// LoggingConfig selects level, format and destination.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig controls rotation when Output is "file". MaxSize is
// in megabytes and MaxAge in days.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads the YAML file at path over the defaults, applies SMARTHUB_*
// environment overrides and validates the result.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file is unreadable or malformed, an override does not
//     parse, or validation fails
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Site:    SiteConfig{ID: "site-001", Name: "Smart Home"},
		Devices: DevicesConfig{ReadTimeout: 3 * time.Second, SampleInterval: 10 * time.Second},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/smarthub.db",
			WALMode:     true,
			BusyTimeout: 5 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker:    MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "smarthub"},
			QoS:       1,
			Reconnect: MQTTReconnectConfig{InitialDelay: time.Second, MaxDelay: time.Minute},
		},
		API: APIConfig{
			Host:     "0.0.0.0",
			Port:     8080,
			Timeouts: APITimeoutConfig{Read: 30 * time.Second, Write: 30 * time.Second, Idle: time.Minute},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30 * time.Second,
			PongTimeout:    10 * time.Second,
		},
		InfluxDB: InfluxDBConfig{BatchSize: 100, FlushInterval: 10 * time.Second},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File:   FileLoggingConfig{Path: "./logs/smarthub.log", MaxSize: 100, MaxBackups: 3, MaxAge: 28},
		},
	}
}

// envOverride binds one SMARTHUB_* variable to a field.
type envOverride struct {
	name string
	set  func(c *Config, value string) error
}

func stringVar(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func intVar(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func durationVar(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

var envOverrides = []envOverride{
	{"SMARTHUB_SITE_NAME", stringVar(func(c *Config) *string { return &c.Site.Name })},
	{"SMARTHUB_DEVICES_READ_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.Devices.ReadTimeout })},
	{"SMARTHUB_DEVICES_SAMPLE_INTERVAL", durationVar(func(c *Config) *time.Duration { return &c.Devices.SampleInterval })},
	{"SMARTHUB_DATABASE_PATH", stringVar(func(c *Config) *string { return &c.Database.Path })},
	{"SMARTHUB_MQTT_HOST", stringVar(func(c *Config) *string { return &c.MQTT.Broker.Host })},
	{"SMARTHUB_MQTT_PORT", intVar(func(c *Config) *int { return &c.MQTT.Broker.Port })},
	{"SMARTHUB_MQTT_USERNAME", stringVar(func(c *Config) *string { return &c.MQTT.Auth.Username })},
	{"SMARTHUB_MQTT_PASSWORD", stringVar(func(c *Config) *string { return &c.MQTT.Auth.Password })},
	{"SMARTHUB_API_HOST", stringVar(func(c *Config) *string { return &c.API.Host })},
	{"SMARTHUB_API_PORT", intVar(func(c *Config) *int { return &c.API.Port })},
	{"SMARTHUB_INFLUXDB_URL", stringVar(func(c *Config) *string { return &c.InfluxDB.URL })},
	{"SMARTHUB_INFLUXDB_TOKEN", stringVar(func(c *Config) *string { return &c.InfluxDB.Token })},
	{"SMARTHUB_LOG_LEVEL", stringVar(func(c *Config) *string { return &c.Logging.Level })},
}

// applyEnvOverrides applies every non-empty variable found by lookup.
// Malformed numbers and durations are all reported together.
func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	for _, o := range envOverrides {
		v, ok := lookup(o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.set(cfg, v); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", o.name, v, err))
		}
	}
	return errors.Join(errs...)
}

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var problems []string
	require := func(ok bool, problem string) {
		if !ok {
			problems = append(problems, problem)
		}
	}
	validPort := func(p int) bool { return p >= 1 && p <= 65535 }

	require(c.Site.ID != "", "site.id is required")
	require(c.Devices.ReadTimeout > 0, "devices.read_timeout must be positive")
	require(c.Devices.SampleInterval >= 0, "devices.sample_interval must not be negative")
	require(!c.Database.Enabled || c.Database.Path != "", "database.path is required when the database is enabled")
	require(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1, or 2")
	require(!c.MQTT.Enabled || validPort(c.MQTT.Broker.Port), "mqtt.broker.port must be between 1 and 65535")
	require(validPort(c.API.Port), "api.port must be between 1 and 65535")
	require(c.WebSocket.PingInterval > 0 && c.WebSocket.PongTimeout > 0,
		"websocket.ping_interval and websocket.pong_timeout must be positive")
	require(c.WebSocket.MaxMessageSize > 0, "websocket.max_message_size must be positive")
	require(!c.InfluxDB.Enabled || (c.InfluxDB.URL != "" && c.InfluxDB.Bucket != ""),
		"influxdb.url and influxdb.bucket are required when influxdb is enabled")
	require(c.Logging.Output != "file" || c.Logging.File.Path != "",
		"logging.file.path is required when logging.output is file")

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
