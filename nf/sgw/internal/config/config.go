package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the S-GW configuration.
type Config struct {
	NF            NFConfig            `yaml:"nf"`
	S11           S11Config           `yaml:"s11"`
	S1U           S1UConfig           `yaml:"s1u"`
	PLMN          PLMNConfig          `yaml:"plmn"`
	Forwarding    ForwardingConfig    `yaml:"forwarding"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// NFConfig holds NF-specific configuration.
type NFConfig struct {
	Name        string `yaml:"name"`
	InstanceID  string `yaml:"instance_id"`
	Description string `yaml:"description"`
}

// S11Config holds the S11 GTPv2-C interface configuration (MME-facing
// control plane).
type S11Config struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
}

// S1UConfig holds the S1-U GTP-U interface configuration (eNodeB-facing
// user plane).
type S1UConfig struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
}

// PLMNConfig holds PLMN configuration.
type PLMNConfig struct {
	MCC string `yaml:"mcc"`
	MNC string `yaml:"mnc"`
}

// ForwardingConfig holds user-plane forwarding configuration.
type ForwardingConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Logging LoggingConfig `yaml:"logging"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from a file.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.S11.Port == 0 {
		config.S11.Port = 2123
	}
	if config.S1U.Port == 0 {
		config.S1U.Port = 2152
	}
	if config.Forwarding.BufferSize == 0 {
		config.Forwarding.BufferSize = 65535
	}

	return &config, nil
}

// GetS11Address returns the S11 bind address.
func (c *Config) GetS11Address() string {
	return fmt.Sprintf("%s:%d", c.S11.BindAddress, c.S11.Port)
}

// GetS1UAddress returns the S1-U bind address.
func (c *Config) GetS1UAddress() string {
	return fmt.Sprintf("%s:%d", c.S1U.BindAddress, c.S1U.Port)
}
