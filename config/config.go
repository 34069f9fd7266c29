// Package config provides configuration loading and validation for the
// mavros parameter client.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Default values applied by DefaultConfig and ApplyDefaults
const (
	DefaultNamespace       = "mavros"
	DefaultTargetSystem    = 1
	DefaultTargetComponent = 1
	DefaultCallTimeout     = 5 * time.Second
)

// Config represents the complete client configuration
type Config struct {
	Client ClientConfig `json:"client"`
	NATS   NATSConfig   `json:"nats"`
	Param  ParamConfig  `json:"param"`
}

// ClientConfig defines client identity
type ClientConfig struct {
	Name string `json:"name,omitempty"` // Connection name; a uuid suffix is added when empty
}

// NATSConfig defines the NATS connection settings
type NATSConfig struct {
	URL           string        `json:"url"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
	TLS           NATSTLSConfig `json:"tls,omitempty"`
}

// NATSTLSConfig for secure NATS connections
type NATSTLSConfig struct {
	Enabled  bool   `json:"enabled"`
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
	CAFile   string `json:"ca_file,omitempty"`
}

// ParamConfig defines parameter plugin settings
type ParamConfig struct {
	// Namespace prefixes all parameter subjects (e.g. "mavros" gives
	// "mavros.param.pull").
	Namespace string `json:"namespace,omitempty"`

	// Vehicle addressing recorded in saved parameter files
	TargetSystem    int `json:"target_system,omitempty"`
	TargetComponent int `json:"target_component,omitempty"`

	// CallTimeout bounds both the readiness wait and the reply wait of each
	// remote call.
	CallTimeout time.Duration `json:"call_timeout,omitempty"`
}

// DefaultConfig returns a config with defaults suitable for a local setup
func DefaultConfig() *Config {
	cfg := &Config{
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults
func (c *Config) ApplyDefaults() {
	if c.Param.Namespace == "" {
		c.Param.Namespace = DefaultNamespace
	}
	if c.Param.TargetSystem == 0 {
		c.Param.TargetSystem = DefaultTargetSystem
	}
	if c.Param.TargetComponent == 0 {
		c.Param.TargetComponent = DefaultTargetComponent
	}
	if c.Param.CallTimeout == 0 {
		c.Param.CallTimeout = DefaultCallTimeout
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return errors.New("nats.url is required")
	}

	if !isValidNATSSubjectPart(c.Param.Namespace) {
		return fmt.Errorf(
			"param.namespace '%s' is not valid for NATS subjects (must be alphanumeric with dots, dashes, underscores)",
			c.Param.Namespace,
		)
	}

	if c.Param.TargetSystem < 1 || c.Param.TargetSystem > 255 {
		return fmt.Errorf("param.target_system %d out of range [1,255]", c.Param.TargetSystem)
	}
	if c.Param.TargetComponent < 1 || c.Param.TargetComponent > 255 {
		return fmt.Errorf("param.target_component %d out of range [1,255]", c.Param.TargetComponent)
	}

	if c.Param.CallTimeout <= 0 {
		return errors.New("param.call_timeout must be positive")
	}

	if c.NATS.TLS.Enabled && (c.NATS.TLS.CertFile == "") != (c.NATS.TLS.KeyFile == "") {
		return errors.New("nats.tls cert_file and key_file must be set together")
	}

	return nil
}

// LoadFromFile loads configuration from a JSON file, applies defaults and
// validates the result. The NATS URL may be overridden with MAVROS_NATS_URL.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if url := os.Getenv("MAVROS_NATS_URL"); url != "" {
		config.NATS.URL = url
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// ToJSON converts config to JSON string for debugging
func (c *Config) ToJSON() (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// isValidNATSSubjectPart checks if a string is valid for use in NATS subjects.
// Valid characters are alphanumeric, dots, dashes, and underscores.
func isValidNATSSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}

	return true
}
