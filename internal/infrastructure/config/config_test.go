package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// A config exercising every section.
	content := `
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8086
profiles:
  dir: "/tmp/profiles"
fans:
  - name: "Bedroom Fan"
    device_code: 1080
    controller_data: "bedroom/ir/send"
  - unique_id: "office_fan"
    name: "Office Fan"
    device_code: 2021
    controller_data: "192.168.1.40"
    delay_ms: 250
    power_sensor_topic: "office/plug/state"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	if len(cfg.Fans) != 2 {
		t.Fatalf("len(Fans) = %d, want 2", len(cfg.Fans))
	}

	// First fan gets derived defaults
	if cfg.Fans[0].UniqueID != "bedroom_fan_1080" {
		t.Errorf("Fans[0].UniqueID = %q, want %q", cfg.Fans[0].UniqueID, "bedroom_fan_1080")
	}
	if cfg.Fans[0].Delay != DefaultFanDelayMillis {
		t.Errorf("Fans[0].Delay = %d, want %d", cfg.Fans[0].Delay, DefaultFanDelayMillis)
	}

	// Second fan keeps explicit values
	if cfg.Fans[1].UniqueID != "office_fan" {
		t.Errorf("Fans[1].UniqueID = %q, want %q", cfg.Fans[1].UniqueID, "office_fan")
	}
	if cfg.Fans[1].Delay != 250 {
		t.Errorf("Fans[1].Delay = %d, want 250", cfg.Fans[1].Delay)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
database:
  path: "/tmp/test.db"
fans:
  - name: "No Code Fan"
    controller_data: "some/topic"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for missing device_code, got nil")
	}
}

func validBase() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "/data/breeze.db"},
		MQTT:     MQTTConfig{QoS: 1},
		API:      APIConfig{Port: 8086},
		Profiles: ProfilesConfig{Dir: "/data/profiles"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "auth token too short",
			mutate:  func(c *Config) { c.API.AuthToken = "short" },
			wantErr: true,
		},
		{
			name:    "auth token long enough",
			mutate:  func(c *Config) { c.API.AuthToken = "0123456789abcdef" },
			wantErr: false,
		},
		{
			name:    "missing profiles dir",
			mutate:  func(c *Config) { c.Profiles.Dir = "" },
			wantErr: true,
		},
		{
			name: "influxdb enabled without token",
			mutate: func(c *Config) {
				c.InfluxDB = InfluxDBConfig{Enabled: true, URL: "http://localhost:8086", Org: "home", Bucket: "breeze"}
			},
			wantErr: true,
		},
		{
			name: "fan missing device code",
			mutate: func(c *Config) {
				c.Fans = []FanConfig{{UniqueID: "f1", ControllerData: "topic"}}
			},
			wantErr: true,
		},
		{
			name: "fan missing controller data",
			mutate: func(c *Config) {
				c.Fans = []FanConfig{{UniqueID: "f1", DeviceCode: 1080}}
			},
			wantErr: true,
		},
		{
			name: "fan negative delay",
			mutate: func(c *Config) {
				c.Fans = []FanConfig{{UniqueID: "f1", DeviceCode: 1080, ControllerData: "topic", Delay: -1}}
			},
			wantErr: true,
		},
		{
			name: "fan wildcard sensor topic",
			mutate: func(c *Config) {
				c.Fans = []FanConfig{{UniqueID: "f1", DeviceCode: 1080, ControllerData: "topic", PowerSensorTopic: "home/+/plug"}}
			},
			wantErr: true,
		},
		{
			name: "duplicate unique ids",
			mutate: func(c *Config) {
				c.Fans = []FanConfig{
					{UniqueID: "f1", DeviceCode: 1080, ControllerData: "a"},
					{UniqueID: "f1", DeviceCode: 2021, ControllerData: "b"},
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("BREEZE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("BREEZE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("BREEZE_MQTT_USERNAME", "testuser")
	t.Setenv("BREEZE_MQTT_PASSWORD", "testpass")
	t.Setenv("BREEZE_API_HOST", "192.168.1.1")
	t.Setenv("BREEZE_API_TOKEN", "0123456789abcdef")
	t.Setenv("BREEZE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("BREEZE_PROFILES_DIR", "/custom/profiles")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.API.AuthToken != "0123456789abcdef" {
		t.Errorf("API.AuthToken = %q, want %q", cfg.API.AuthToken, "0123456789abcdef")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.Profiles.Dir != "/custom/profiles" {
		t.Errorf("Profiles.Dir = %q, want %q", cfg.Profiles.Dir, "/custom/profiles")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8086 {
		t.Errorf("defaultConfig API.Port = %d, want 8086", cfg.API.Port)
	}

	if cfg.Profiles.Dir == "" {
		t.Error("defaultConfig should have non-empty Profiles.Dir")
	}
}

func TestApplyFanDefaults(t *testing.T) {
	cfg := defaultConfig()
	cfg.Fans = []FanConfig{
		{DeviceCode: 1080, ControllerData: "topic"},
		{UniqueID: "keep_me", Name: "Named", DeviceCode: 7, ControllerData: "topic", Delay: 100},
	}

	applyFanDefaults(cfg)

	if cfg.Fans[0].Name != DefaultFanName {
		t.Errorf("Fans[0].Name = %q, want %q", cfg.Fans[0].Name, DefaultFanName)
	}
	if cfg.Fans[0].UniqueID != "breeze_fan_1080" {
		t.Errorf("Fans[0].UniqueID = %q, want %q", cfg.Fans[0].UniqueID, "breeze_fan_1080")
	}
	if cfg.Fans[0].Delay != DefaultFanDelayMillis {
		t.Errorf("Fans[0].Delay = %d, want %d", cfg.Fans[0].Delay, DefaultFanDelayMillis)
	}

	if cfg.Fans[1].UniqueID != "keep_me" {
		t.Errorf("Fans[1].UniqueID = %q, want %q", cfg.Fans[1].UniqueID, "keep_me")
	}
	if cfg.Fans[1].Delay != 100 {
		t.Errorf("Fans[1].Delay = %d, want 100", cfg.Fans[1].Delay)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple", input: "Bedroom Fan", want: "bedroom_fan"},
		{name: "extra spaces", input: "  Living  Room  ", want: "living_room"},
		{name: "punctuation", input: "Kid's Fan (loft)", want: "kid_s_fan_loft"},
		{name: "digits kept", input: "Fan 2", want: "fan_2"},
		{name: "already clean", input: "office_fan", want: "office_fan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.input); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
