// Package config loads the server configuration from a YAML file.
// ${VAR} references in the file are expanded from the environment before
// parsing, so secrets stay out of the file itself.
package config

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Sink names accepted in the events section.
const (
	SinkLog   = "log"
	SinkNop   = "nop"
	SinkRedis = "redis"
	SinkMQTT  = "mqtt"
)

var validSinks = []string{SinkLog, SinkNop, SinkRedis, SinkMQTT}

// Config is the full server configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	Keystore  Keystore  `yaml:"keystore"`
	Auth      Auth      `yaml:"auth"`
	Events    Events    `yaml:"events"`
	Registry  Registry  `yaml:"registry"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Server configures the HTTP listener.
type Server struct {
	Listen string `yaml:"listen"`

	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string `yaml:"corsOrigins"`

	// ShutdownSeconds bounds graceful shutdown on SIGTERM.
	ShutdownSeconds int `yaml:"shutdownTimeout"`
}

// Database selects and configures the persistence backend.
type Database struct {
	// Driver is "postgres" or "memory".
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// Keystore locates the encrypted private keys on disk.
type Keystore struct {
	Dir string `yaml:"dir"`
}

// Auth holds the identity service's public key used to verify bearer
// tokens. Either the inline PEM or a file path must be set.
type Auth struct {
	PublicKey     string `yaml:"publicKey"`
	PublicKeyFile string `yaml:"publicKeyFile"`
}

// Events configures where issuance events are published. Multiple sinks
// fan out; an empty list logs events and nothing more.
type Events struct {
	Sinks  []string `yaml:"sinks"`
	Buffer int      `yaml:"buffer"`
	Redis  Redis    `yaml:"redis"`
	MQTT   MQTT     `yaml:"mqtt"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientId"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
}

// Registry points at a remote pet registry. When unset, pets are served
// from the primary database.
type Registry struct {
	BaseURL        string `yaml:"baseUrl"`
	APIKey         string `yaml:"apiKey"`
	TimeoutSeconds int    `yaml:"timeout"`
}

type Telemetry struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
}

// Load reads, expands and parses the config file, then applies defaults
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills in settings that were left at their zero value.
func (c *Config) ApplyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.ShutdownSeconds == 0 {
		c.Server.ShutdownSeconds = 30
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Keystore.Dir == "" {
		c.Keystore.Dir = "keys"
	}
	if len(c.Events.Sinks) == 0 {
		c.Events.Sinks = []string{SinkLog}
	}
	if c.Events.Buffer == 0 {
		c.Events.Buffer = 128
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "petconnect-certificates"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Auth.PublicKey == "" && c.Auth.PublicKeyFile == "" {
		return fmt.Errorf("auth.publicKey or auth.publicKeyFile is required")
	}

	for _, sink := range c.Events.Sinks {
		if !slices.Contains(validSinks, sink) {
			return fmt.Errorf("unknown event sink %q", sink)
		}

		if sink == SinkRedis && c.Events.Redis.Addr == "" {
			return fmt.Errorf("events.redis.addr is required for the redis sink")
		}

		if sink == SinkMQTT && c.Events.MQTT.Broker == "" {
			return fmt.Errorf("events.mqtt.broker is required for the mqtt sink")
		}
	}

	return nil
}

// AuthPublicKeyPEM returns the verification key, reading the file variant
// when the inline PEM is not set.
func (c *Config) AuthPublicKeyPEM() (string, error) {
	if c.Auth.PublicKey != "" {
		return c.Auth.PublicKey, nil
	}

	data, err := os.ReadFile(c.Auth.PublicKeyFile)
	if err != nil {
		return "", fmt.Errorf("failed to read auth public key: %w", err)
	}

	return string(data), nil
}
