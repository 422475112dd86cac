package common

import (
	"fmt"
	"os"
	"time"

	"github.com/flashbots/fhesession/crypto"
	"github.com/flashbots/fhesession/protocol"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration shared by the binaries.
type Config struct {
	HTTPAddr    string                  `yaml:"http_addr"`
	MetricsAddr string                  `yaml:"metrics_addr"`
	Log         LogConfig               `yaml:"log"`
	Session     SessionConfig           `yaml:"session"`
	Backend     crypto.ParametersConfig `yaml:"backend"`
	CORS        CORSConfig              `yaml:"cors"`
	Server      ServerConfig            `yaml:"server"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// SessionConfig contains the session settings.
type SessionConfig struct {
	Participants         int    `yaml:"participants"`
	BackendFailurePolicy string `yaml:"backend_failure_policy"`
}

// CORSConfig lists the browser origins allowed to call the coordinator.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ServerConfig contains the HTTP server lifecycle settings.
type ServerConfig struct {
	DrainDuration            time.Duration `yaml:"drain_duration"`
	GracefulShutdownDuration time.Duration `yaml:"graceful_shutdown_duration"`
	EnablePprof              bool          `yaml:"enable_pprof"`
}

// DefaultConfig returns a three-party coordinator configuration on :8080.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		Log: LogConfig{
			Level: "info",
		},
		Session: SessionConfig{
			Participants:         protocol.DefaultParticipants,
			BackendFailurePolicy: string(protocol.RollbackOnFailure),
		},
		Backend: crypto.DefaultParametersConfig(),
		Server: ServerConfig{
			DrainDuration:            5 * time.Second,
			GracefulShutdownDuration: 10 * time.Second,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SessionConfig converts the session section.
func (c *Config) SessionConfig() *protocol.SessionConfig {
	return &protocol.SessionConfig{
		Participants:         c.Session.Participants,
		BackendFailurePolicy: protocol.BackendFailurePolicy(c.Session.BackendFailurePolicy),
	}
}

// BackendLiteral converts the backend section into lattice parameters.
func (c *Config) BackendLiteral() (bgv.ParametersLiteral, error) {
	return c.Backend.Literal()
}

// Validate checks the parts of the configuration a coordinator needs.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	if err := c.SessionConfig().Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if _, err := c.BackendLiteral(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}
