package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the MME configuration.
type Config struct {
	PLMN          PLMN                `yaml:"plmn"`
	GUMMEI        GUMMEI              `yaml:"gummei"`
	Timers        TimersConfig        `yaml:"timers"`
	Security      SecurityConfig      `yaml:"security"`
	S6a           S6aConfig           `yaml:"s6a"`
	GTPC          GTPCConfig          `yaml:"gtpc"`
	SGsAP         SGsAPConfig         `yaml:"sgsap"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PLMN represents Public Land Mobile Network identity.
type PLMN struct {
	MCC string `yaml:"mcc"`
	MNC string `yaml:"mnc"`
}

// GUMMEI represents the Globally Unique MME Identifier served by this node.
type GUMMEI struct {
	MMEGroupID uint16 `yaml:"mme_group_id"`
	MMECode    uint8  `yaml:"mme_code"`
}

// TimerSpec describes one bounded-retry NAS timer.
type TimerSpec struct {
	DurationMS int `yaml:"duration_ms"`
	MaxCount   int `yaml:"max_count"`
}

// Duration returns the timer's arm duration as a time.Duration.
func (t TimerSpec) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// TimersConfig holds the per-UE bounded-retry timer parameters.
type TimersConfig struct {
	T3413 TimerSpec `yaml:"t3413"`
	T3460 TimerSpec `yaml:"t3460"`
	T3470 TimerSpec `yaml:"t3470"`
}

// SecurityConfig holds the algorithm preference lists negotiated during
// Security-Mode-Command.
type SecurityConfig struct {
	EEAOrder []string `yaml:"eea_order"`
	EIAOrder []string `yaml:"eia_order"`
}

// S6aConfig configures the Diameter/S6a adapter to the HSS.
type S6aConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// GTPCConfig configures the GTP-C adapter to the S-GW.
type GTPCConfig struct {
	SGWAddr   string        `yaml:"sgw_addr"`
	LocalAddr string        `yaml:"local_addr"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SGsAPConfig configures the SGsAP adapter to the MSC/VLR.
type SGsAPConfig struct {
	VLRAddr string `yaml:"vlr_addr"`
}

// ServerConfig configures the debug/ops HTTP API.
type ServerConfig struct {
	BindAddress string `yaml:"bind_address"`
}

// ObservabilityConfig configures metrics/tracing.
type ObservabilityConfig struct {
	MetricsAddr string     `yaml:"metrics_addr"`
	LogLevel    string     `yaml:"log_level"`
	OTEL        OTELConfig `yaml:"otel"`
}

// OTELConfig configures the OpenTelemetry tracer.
type OTELConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration baked in when no file is supplied,
// matching the shape documented for config/mme.yaml.
func Default() *Config {
	return &Config{
		PLMN:   PLMN{MCC: "001", MNC: "01"},
		GUMMEI: GUMMEI{MMEGroupID: 1, MMECode: 1},
		Timers: TimersConfig{
			T3413: TimerSpec{DurationMS: 6000, MaxCount: 4},
			T3460: TimerSpec{DurationMS: 6000, MaxCount: 5},
			T3470: TimerSpec{DurationMS: 6000, MaxCount: 5},
		},
		Security: SecurityConfig{
			EEAOrder: []string{"EEA2", "EEA1", "EEA0"},
			EIAOrder: []string{"EIA2", "EIA1"},
		},
		S6a:    S6aConfig{URL: "http://127.0.0.1:8090", Timeout: 3 * time.Second},
		GTPC:   GTPCConfig{SGWAddr: "127.0.0.1:2123", LocalAddr: "127.0.0.1:0", Timeout: 3 * time.Second},
		SGsAP:  SGsAPConfig{VLRAddr: "127.0.0.1:29118"},
		Server: ServerConfig{BindAddress: "0.0.0.0:8080"},
		Observability: ObservabilityConfig{
			MetricsAddr: ":9095",
			LogLevel:    "info",
			OTEL:        OTELConfig{Enabled: false, ServiceName: "mme"},
		},
	}
}
