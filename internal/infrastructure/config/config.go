package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Profiles  ProfilesConfig  `yaml:"profiles"`
	Fans      []FanConfig     `yaml:"fans"`
}

// DatabaseConfig locates the SQLite file and tunes its locking.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig describes the broker session.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig is the broker endpoint.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig holds broker credentials. Usually set through the
// environment rather than the file.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig shapes the retry backoff, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	// AuthToken, when set, is required as a bearer token on every API request.
	// Leave empty for unauthenticated LAN-only deployments.
	AuthToken string `yaml:"auth_token"`
}

// TLSConfig points at the certificate pair for HTTPS.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig sets the HTTP server timeouts, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig lists what browsers may do cross-origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig tunes the /ws endpoint.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig configures the optional telemetry sink.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig selects log level, format, and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ProfilesConfig locates the device profile files.
type ProfilesConfig struct {
	// Dir is the directory containing per-device command tables,
	// one <device_code>.json file per supported device.
	Dir string `yaml:"dir"`
}

// FanConfig describes one IR/RF fan entity.
type FanConfig struct {
	// UniqueID identifies the entity across restarts. When empty, a stable
	// ID is derived from the name and device code.
	UniqueID string `yaml:"unique_id"`

	// Name is the display name. Defaults to "Breeze Fan".
	Name string `yaml:"name"`

	// DeviceCode selects the profile JSON file. Required.
	DeviceCode int `yaml:"device_code"`

	// ControllerData is passed through to the controller transport: an MQTT
	// topic, a LOOKin device address, or a REST endpoint URL. Required.
	ControllerData string `yaml:"controller_data"`

	// Delay is the pause between packets of a multi-packet command,
	// in milliseconds. Defaults to 500.
	Delay int `yaml:"delay_ms"`

	// PowerSensorTopic is an optional MQTT topic reporting the fan's
	// power draw state (on/off), used to track remote-control usage.
	PowerSensorTopic string `yaml:"power_sensor_topic"`
}

// DelayDuration returns the inter-packet delay as a Duration.
func (f FanConfig) DelayDuration() time.Duration {
	return time.Duration(f.Delay) * time.Millisecond
}

// Load builds the runtime configuration from one YAML file. Later
// sources win: hardcoded defaults, then the file, then BREEZE_*
// environment variables. Per-fan defaults are filled before validation
// so a config that loads cleanly is fully usable.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyFanDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig is the baseline a file gets merged over. Values here
// suit a single-host deployment with a local broker.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/breeze.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "breeze-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8086,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Profiles: ProfilesConfig{
			Dir: "./profiles/fan",
		},
	}
}

// Per-fan defaults, distinct from defaultConfig because fans arrive as a list.
const (
	// DefaultFanName is used when a fan entry omits its display name.
	DefaultFanName = "Breeze Fan"

	// DefaultFanDelayMillis is the default inter-packet command delay.
	DefaultFanDelayMillis = 500
)

// applyFanDefaults fills in omitted per-fan fields.
//
// A missing unique_id is derived from the name and device code so the same
// config file always maps to the same persisted state rows.
func applyFanDefaults(cfg *Config) {
	for i := range cfg.Fans {
		fan := &cfg.Fans[i]
		if fan.Name == "" {
			fan.Name = DefaultFanName
		}
		if fan.Delay == 0 {
			fan.Delay = DefaultFanDelayMillis
		}
		if fan.UniqueID == "" {
			fan.UniqueID = Slug(fan.Name) + "_" + strconv.Itoa(fan.DeviceCode)
		}
	}
}

// Slug converts a display name to a lowercase identifier safe for use in
// MQTT topics, URLs, and database keys.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// envOverrides maps BREEZE_* variables onto config fields. The set is
// deliberately small: credentials, plus the handful of values a
// container deployment needs to move without editing the file.
var envOverrides = []struct {
	name   string
	target func(*Config) *string
}{
	{"BREEZE_DATABASE_PATH", func(c *Config) *string { return &c.Database.Path }},
	{"BREEZE_MQTT_HOST", func(c *Config) *string { return &c.MQTT.Broker.Host }},
	{"BREEZE_MQTT_USERNAME", func(c *Config) *string { return &c.MQTT.Auth.Username }},
	{"BREEZE_MQTT_PASSWORD", func(c *Config) *string { return &c.MQTT.Auth.Password }},
	{"BREEZE_API_HOST", func(c *Config) *string { return &c.API.Host }},
	{"BREEZE_API_TOKEN", func(c *Config) *string { return &c.API.AuthToken }},
	{"BREEZE_INFLUXDB_TOKEN", func(c *Config) *string { return &c.InfluxDB.Token }},
	{"BREEZE_PROFILES_DIR", func(c *Config) *string { return &c.Profiles.Dir }},
}

func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			*o.target(cfg) = v
		}
	}
}

// Validate collects every problem it can find rather than stopping at
// the first, so one failed start names them all.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	const minAuthTokenLength = 16
	if c.API.AuthToken != "" && len(c.API.AuthToken) < minAuthTokenLength {
		errs = append(errs, "api.auth_token must be at least 16 characters")
	}

	// The telemetry sink is optional, but once enabled it needs the
	// full connection tuple.
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set BREEZE_INFLUXDB_TOKEN)")
		}
		if c.InfluxDB.Org == "" {
			errs = append(errs, "influxdb.org is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if c.Profiles.Dir == "" {
		errs = append(errs, "profiles.dir is required")
	}

	seen := make(map[string]int, len(c.Fans))
	for i, fan := range c.Fans {
		prefix := fmt.Sprintf("fans[%d]", i)
		if fan.DeviceCode <= 0 {
			errs = append(errs, prefix+".device_code must be a positive integer")
		}
		if fan.ControllerData == "" {
			errs = append(errs, prefix+".controller_data is required")
		}
		if fan.Delay < 0 {
			errs = append(errs, prefix+".delay_ms must not be negative")
		}
		if strings.ContainsAny(fan.PowerSensorTopic, "+#") {
			errs = append(errs, prefix+".power_sensor_topic must not contain wildcards")
		}
		if prev, dup := seen[fan.UniqueID]; dup {
			errs = append(errs, fmt.Sprintf("%s.unique_id %q duplicates fans[%d]", prefix, fan.UniqueID, prev))
		}
		seen[fan.UniqueID] = i
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Duration views over the integer timeout fields.

func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
