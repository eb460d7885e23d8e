package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
site:
  id: "test-site"
panel:
  connection: "tcp"
  tcp:
    host: "192.168.1.15"
  user_code: "1234"
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
  port: 8090
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

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}

	if cfg.Panel.TCP.Host != "192.168.1.15" {
		t.Errorf("Panel.TCP.Host = %q, want %q", cfg.Panel.TCP.Host, "192.168.1.15")
	}

	if cfg.PanelAddress() != "192.168.1.15:7094" {
		t.Errorf("PanelAddress() = %q, want %q", cfg.PanelAddress(), "192.168.1.15:7094")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
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
site:
  id: ""
panel:
  connection: "tcp"
  tcp:
    host: "192.168.1.15"
database:
  path: "/tmp/test.db"
api:
  port: 8090
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	validPanel := PanelConfig{
		Connection:      "tcp",
		TCP:             PanelTCPConfig{Host: "192.168.1.15"},
		ResponseTimeout: 10,
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Site:     SiteConfig{ID: "site-001"},
				Panel:    validPanel,
				Database: DatabaseConfig{Path: "/data/integra.db"},
				MQTT:     MQTTConfig{QoS: 1},
				API:      APIConfig{Port: 8090},
			},
			wantErr: false,
		},
		{
			name: "valid serial config",
			config: &Config{
				Site: SiteConfig{ID: "site-001"},
				Panel: PanelConfig{
					Connection:      "serial",
					Serial:          PanelSerialConfig{Port: "/dev/ttyUSB0"},
					ResponseTimeout: 10,
				},
				Database: DatabaseConfig{Path: "/data/integra.db"},
				MQTT:     MQTTConfig{QoS: 1},
				API:      APIConfig{Port: 8090},
			},
			wantErr: false,
		},
		{
			name: "missing site ID",
			config: &Config{
				Site:     SiteConfig{ID: ""},
				Panel:    validPanel,
				Database: DatabaseConfig{Path: "/data/integra.db"},
				MQTT:     MQTTConfig{QoS: 1},
				API:      APIConfig{Port: 8090},
			},
			wantErr: true,
		},
		{
			name: "tcp without host",
			config: &Config{
				Site: SiteConfig{ID: "site-001"},
				Panel: PanelConfig{
					Connection:      "tcp",
					ResponseTimeout: 10,
				},
				Database: DatabaseConfig{Path: "/data/integra.db"},
				MQTT:     MQTTConfig{QoS: 1},
				API:      APIConfig{Port: 8090},
			},
			wantErr: true,
		},
		{
			name: "serial without port",
			config: &Config{
				Site: SiteConfig{ID: "site-001"},
				Panel: PanelConfig{
					Connection:      "serial",
					ResponseTimeout: 10,
				},
				Database: DatabaseConfig{Path: "/data/integra.db"},
				MQTT:     MQTTConfig{QoS: 1},
				API:      APIConfig{Port: 8090},
			},
			wantErr: true,
		},
		{
			name: "unknown connection type",
			config: &Config{
				Site: SiteConfig{ID: "site-001"},
				Panel: PanelConfig{
					Connection:      "modem",
					ResponseTimeout: 10,
				},
				Database: DatabaseConfig{Path: "/data/integra.db"},
				MQTT:     MQTTConfig{QoS: 1},
				API:      APIConfig{Port: 8090},
			},
			wantErr: true,
		},
		{
			name: "temperature zone out of range",
			config: &Config{
				Site: SiteConfig{ID: "site-001"},
				Panel: PanelConfig{
					Connection:       "tcp",
					TCP:              PanelTCPConfig{Host: "192.168.1.15"},
					ResponseTimeout:  10,
					TemperatureZones: []int{1, 300},
				},
				Database: DatabaseConfig{Path: "/data/integra.db"},
				MQTT:     MQTTConfig{QoS: 1},
				API:      APIConfig{Port: 8090},
			},
			wantErr: true,
		},
		{
			name: "missing database path",
			config: &Config{
				Site:     SiteConfig{ID: "site-001"},
				Panel:    validPanel,
				Database: DatabaseConfig{Path: ""},
				MQTT:     MQTTConfig{QoS: 1},
				API:      APIConfig{Port: 8090},
			},
			wantErr: true,
		},
		{
			name: "invalid QoS",
			config: &Config{
				Site:     SiteConfig{ID: "site-001"},
				Panel:    validPanel,
				Database: DatabaseConfig{Path: "/data/integra.db"},
				MQTT:     MQTTConfig{QoS: 3},
				API:      APIConfig{Port: 8090},
			},
			wantErr: true,
		},
		{
			name: "invalid port low",
			config: &Config{
				Site:     SiteConfig{ID: "site-001"},
				Panel:    validPanel,
				Database: DatabaseConfig{Path: "/data/integra.db"},
				MQTT:     MQTTConfig{QoS: 1},
				API:      APIConfig{Port: 0},
			},
			wantErr: true,
		},
		{
			name: "invalid port high",
			config: &Config{
				Site:     SiteConfig{ID: "site-001"},
				Panel:    validPanel,
				Database: DatabaseConfig{Path: "/data/integra.db"},
				MQTT:     MQTTConfig{QoS: 1},
				API:      APIConfig{Port: 70000},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		Panel: PanelConfig{ResponseTimeout: 10},
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetResponseTimeout().Seconds(); got != 10 {
		t.Errorf("GetResponseTimeout() = %v, want 10", got)
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

	t.Setenv("INTEGRA_PANEL_HOST", "192.168.1.99")
	t.Setenv("INTEGRA_USER_CODE", "5678")
	t.Setenv("INTEGRA_DATABASE_PATH", "/custom/path.db")
	t.Setenv("INTEGRA_MQTT_HOST", "mqtt.example.com")
	t.Setenv("INTEGRA_MQTT_USERNAME", "testuser")
	t.Setenv("INTEGRA_MQTT_PASSWORD", "testpass")
	t.Setenv("INTEGRA_API_HOST", "192.168.1.1")
	t.Setenv("INTEGRA_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Panel.TCP.Host != "192.168.1.99" {
		t.Errorf("Panel.TCP.Host = %q, want %q", cfg.Panel.TCP.Host, "192.168.1.99")
	}

	if cfg.Panel.UserCode != "5678" {
		t.Errorf("Panel.UserCode = %q, want %q", cfg.Panel.UserCode, "5678")
	}

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

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Site.ID == "" {
		t.Error("defaultConfig should have non-empty Site.ID")
	}

	if cfg.Panel.TCP.Port != 7094 {
		t.Errorf("defaultConfig Panel.TCP.Port = %d, want 7094", cfg.Panel.TCP.Port)
	}

	if cfg.Panel.Serial.BaudRate != 19200 {
		t.Errorf("defaultConfig Panel.Serial.BaudRate = %d, want 19200", cfg.Panel.Serial.BaudRate)
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8090 {
		t.Errorf("defaultConfig API.Port = %d, want 8090", cfg.API.Port)
	}
}
