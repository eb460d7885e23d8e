package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Integra bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Panel     PanelConfig     `yaml:"panel"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// PanelConfig contains alarm panel connection settings.
type PanelConfig struct {
	// Connection selects the integration module: "tcp" (ETHM-1) or
	// "serial" (INT-RS).
	Connection string `yaml:"connection"`

	TCP    PanelTCPConfig    `yaml:"tcp"`
	Serial PanelSerialConfig `yaml:"serial"`

	// UserCode authorises control commands (arm, disarm, outputs).
	// Override with INTEGRA_USER_CODE rather than committing it to the
	// config file.
	UserCode string `yaml:"user_code"`

	// ResponseTimeout is the per-command deadline in seconds.
	ResponseTimeout int `yaml:"response_timeout"`

	// QueueSize bounds the number of commands waiting behind the
	// in-flight one.
	QueueSize int `yaml:"queue_size"`

	// TemperatureZones lists zone numbers with temperature sensors to
	// poll periodically. Empty disables polling.
	TemperatureZones []int `yaml:"temperature_zones"`

	// TemperaturePollInterval is the polling period in seconds.
	TemperaturePollInterval int `yaml:"temperature_poll_interval"`
}

// PanelTCPConfig contains ETHM-1 module connection details.
type PanelTCPConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	ConnectTimeout    int    `yaml:"connect_timeout"`
	ReadTimeout       int    `yaml:"read_timeout"`
	ReconnectInterval int    `yaml:"reconnect_interval"`
}

// PanelSerialConfig contains INT-RS module connection details.
type PanelSerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: INTEGRA_SECTION_KEY
// For example: INTEGRA_DATABASE_PATH, INTEGRA_PANEL_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Integra",
			Timezone: "UTC",
		},
		Panel: PanelConfig{
			Connection: "tcp",
			TCP: PanelTCPConfig{
				Port:              7094,
				ConnectTimeout:    10,
				ReadTimeout:       30,
				ReconnectInterval: 5,
			},
			Serial: PanelSerialConfig{
				BaudRate: 19200,
			},
			ResponseTimeout:         10,
			QueueSize:               32,
			TemperaturePollInterval: 300,
		},
		Database: DatabaseConfig{
			Path:        "./data/integra.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "integra-bridge",
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
			Port: 8090,
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
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: INTEGRA_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Panel
	if v := os.Getenv("INTEGRA_PANEL_HOST"); v != "" {
		cfg.Panel.TCP.Host = v
	}
	if v := os.Getenv("INTEGRA_USER_CODE"); v != "" {
		cfg.Panel.UserCode = v
	}

	// Database
	if v := os.Getenv("INTEGRA_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("INTEGRA_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("INTEGRA_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("INTEGRA_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("INTEGRA_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("INTEGRA_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Panel validation
	switch c.Panel.Connection {
	case "tcp":
		if c.Panel.TCP.Host == "" {
			errs = append(errs, "panel.tcp.host is required (set INTEGRA_PANEL_HOST environment variable)")
		}
	case "serial":
		if c.Panel.Serial.Port == "" {
			errs = append(errs, "panel.serial.port is required")
		}
	default:
		errs = append(errs, "panel.connection must be \"tcp\" or \"serial\"")
	}
	if c.Panel.ResponseTimeout < 1 {
		errs = append(errs, "panel.response_timeout must be at least 1 second")
	}
	for _, zone := range c.Panel.TemperatureZones {
		if zone < 1 || zone > 255 {
			errs = append(errs, fmt.Sprintf("panel.temperature_zones: zone %d outside 1..255", zone))
			break
		}
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// PanelAddress returns the ETHM-1 host:port for dialling.
func (c *Config) PanelAddress() string {
	return fmt.Sprintf("%s:%d", c.Panel.TCP.Host, c.Panel.TCP.Port)
}

// GetResponseTimeout returns the per-command deadline as a Duration.
func (c *Config) GetResponseTimeout() time.Duration {
	return time.Duration(c.Panel.ResponseTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
