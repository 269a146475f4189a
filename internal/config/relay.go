package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type RelayConfig struct {
	Storage struct {
		PostgresDSN string `yaml:"postgres_dsn"`
		MaxConns    int32  `yaml:"max_conns"`
		MinConns    int32  `yaml:"min_conns"`
	} `yaml:"storage"`

	Security struct {
		EnforceSecureTLS *bool `yaml:"enforce_secure_transport"`
	} `yaml:"security"`

	Relay struct {
		PollIntervalSeconds int `yaml:"poll_interval_seconds"`
		BatchSize           int `yaml:"batch_size"`
		MaxBackoffSeconds   int `yaml:"max_backoff_seconds"`
	} `yaml:"relay"`

	Logging Logging `yaml:"logging"`

	Hedera HederaConfig `yaml:"-"`
}

type Logging struct {
	Service string `yaml:"service"`
	Version string `yaml:"version"`
	Commit  string `yaml:"commit"`
	Level   string `yaml:"level"`
}

// LoadRelay reads the relay YAML and the Hedera settings from the environment.
func LoadRelay(path string, dotenvFiles ...string) (*RelayConfig, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read relay config: %w", err)
	}
	hedera, err := LoadHedera(dotenvFiles...)
	if err != nil {
		return nil, err
	}
	var cfg RelayConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse relay config yaml: %w", err)
	}
	cfg.Hedera = *hedera
	cfg.expandEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RelayConfig) applyDefaults() {
	if c.Storage.MaxConns <= 0 {
		c.Storage.MaxConns = 10
	}
	if c.Storage.MinConns < 0 {
		c.Storage.MinConns = 0
	}
	if c.Security.EnforceSecureTLS == nil {
		c.Security.EnforceSecureTLS = boolPtr(true)
	}
	if c.Relay.PollIntervalSeconds <= 0 {
		c.Relay.PollIntervalSeconds = 10
	}
	if c.Relay.BatchSize <= 0 {
		c.Relay.BatchSize = 50
	}
	if c.Relay.MaxBackoffSeconds <= 0 {
		c.Relay.MaxBackoffSeconds = 600
	}
	c.Logging.applyDefaults("bitvault-proof-relay")
}

func (c *RelayConfig) validate() error {
	if c.Storage.PostgresDSN == "" {
		return errors.New("storage.postgres_dsn is required")
	}
	if *c.Security.EnforceSecureTLS && dsnUsesInsecureSSL(c.Storage.PostgresDSN) {
		return errors.New("storage.postgres_dsn must use sslmode=require|verify-ca|verify-full when enforce_secure_transport is enabled")
	}
	if c.Storage.MinConns > c.Storage.MaxConns {
		return errors.New("storage.min_conns cannot exceed storage.max_conns")
	}
	if c.Relay.BatchSize > 1000 {
		return errors.New("relay.batch_size cannot exceed 1000")
	}
	return c.Logging.validate()
}

func (c *RelayConfig) expandEnv() {
	c.Storage.PostgresDSN = os.ExpandEnv(strings.TrimSpace(c.Storage.PostgresDSN))
	c.Logging.Version = os.ExpandEnv(strings.TrimSpace(c.Logging.Version))
	c.Logging.Commit = os.ExpandEnv(strings.TrimSpace(c.Logging.Commit))
}

func (l *Logging) applyDefaults(service string) {
	if l.Service == "" {
		l.Service = service
	}
	if l.Version == "" {
		l.Version = "dev"
	}
	if l.Commit == "" {
		l.Commit = "unknown"
	}
	if l.Level == "" {
		l.Level = "info"
	}
}

func (l *Logging) validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug|info|warn|error, got %q", l.Level)
	}
}

// DefaultLogging is used by the binaries that take no YAML file.
func DefaultLogging(service string) Logging {
	var l Logging
	l.applyDefaults(service)
	return l
}
