// Package config provides configuration loading with explicit naming
//
// Available functions:
//
//	LoadFromEnvVarsOnly()              - Environment variables ONLY
//	                                     Use: containers without a config file
//
//	LoadFromYamlFile(path)             - YAML file ONLY (no env overrides)
//	                                     Use: local development, testing
//
//	LoadFromYamlWithEnvOverrides(path) - YAML base + environment overrides
//	                                     Priority: Env Vars > YAML > Defaults
//
// Environment variables supported:
//
//	SERVER:
//	  - PPS_MONITOR_ADDRESS, PPS_MONITOR_PORT
//	  - SERVER_READ_TIMEOUT, SERVER_WRITE_TIMEOUT
//
//	DEVICES:
//	  - PPS_DEVICES (comma-separated serial device paths; kernel PPS
//	    enabled, 5 Hz publication disabled for each)
//
//	REFCLOCK:
//	  - REFCLOCK_ENABLED, REFCLOCK_SERVER, REFCLOCK_INTERVAL
//	  - REFCLOCK_TIMEOUT
//
//	SHM:
//	  - SHM_ENABLED, SHM_UNIT
//
//	LOGGING:
//	  - LOG_LEVEL (trace|debug|info|warn|error|fatal|panic)
//	  - LOG_ENABLE_FILE, LOG_FILE_PATH
//
//	METRICS:
//	  - METRICS_NAMESPACE, METRICS_SUBSYSTEM
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/maximewewer/pps-monitor/pkg/logger"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Devices  []DeviceConfig `yaml:"devices"`
	Refclock RefclockConfig `yaml:"refclock"`
	SHM      SHMConfig      `yaml:"shm"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig contains HTTP server configuration. The listener is
// plain HTTP: the diagnostic surface is meant for localhost or a
// management network, with any TLS termination in front of it.
type ServerConfig struct {
	Address      string        `yaml:"address"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DeviceConfig describes one serial-attached PPS source
type DeviceConfig struct {
	// Path is the serial device, e.g. /dev/ttyS0, or a /dev/ppsN device
	// when the platform exposes the pulse directly.
	Path string `yaml:"path"`

	// Name is the label used in logs and metrics. Defaults to Path.
	Name string `yaml:"name"`

	// EnableKernelPPS attempts RFC2783 kernel capture setup. Requires
	// root on Linux at activation time; failure falls back to the
	// user-space path.
	EnableKernelPPS bool `yaml:"enable_kernel_pps"`

	// Publish5Hz opts in to publishing 5 Hz pulses. The sub-second phase
	// of a 5 Hz edge cannot be inferred from the edge alone, so this must
	// only be enabled when the receiver is configured to mark the top of
	// second some other way.
	Publish5Hz bool `yaml:"publish_5hz"`
}

// RefclockConfig contains the NTP cross-check configuration
type RefclockConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Server   string        `yaml:"server"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
	Version  int           `yaml:"version"`
}

// SHMConfig contains the ntpd shared-memory segment sink configuration
type SHMConfig struct {
	Enabled bool `yaml:"enabled"`
	// Unit selects the segment key 0x4e545030+unit. Units 0 and 1 are
	// conventionally root-only, 2 and 3 world-accessible.
	Unit int `yaml:"unit"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	EnableFile bool   `yaml:"enable_file"`
	FilePath   string `yaml:"file_path"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Namespace string            `yaml:"namespace"`
	Subsystem string            `yaml:"subsystem"`
	Labels    map[string]string `yaml:"labels"`
}

// LoadFromYamlFile reads configuration from a YAML file only (no env var overrides)
// Use case: Local development, testing
func LoadFromYamlFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("config", "Failed to read config file", err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		logger.Error("config", "Failed to parse config file", err)
		return nil, fmt.Errorf("failed to parse YAML config file %s: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		logger.Error("config", "Invalid configuration", err)
		return nil, fmt.Errorf("configuration validation failed for %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromYamlWithEnvOverrides loads base config from YAML, then overrides with environment variables
// Priority: Environment Variables > YAML File > Defaults
func LoadFromYamlWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadFromYamlFile(path)
	if err != nil {
		logger.Warn("config", "Failed to load YAML config file, falling back to env vars only")
		cfg = &Config{}
		ApplyDefaults(cfg)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		logger.Error("config", "Invalid configuration after env overrides", err)
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFromEnvVarsOnly builds the configuration from defaults and environment variables
func LoadFromEnvVarsOnly() (*Config, error) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		logger.Error("config", "Invalid configuration from env vars", err)
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to an existing config
func applyEnvOverrides(cfg *Config) {
	// ---------------------------------------------------------------------------
	// SERVER - HTTP Server configuration
	// ---------------------------------------------------------------------------
	if addr := os.Getenv("PPS_MONITOR_ADDRESS"); addr != "" {
		cfg.Server.Address = addr
	}
	if port := os.Getenv("PPS_MONITOR_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if readTimeout := os.Getenv("SERVER_READ_TIMEOUT"); readTimeout != "" {
		if t, err := time.ParseDuration(readTimeout); err == nil {
			cfg.Server.ReadTimeout = t
		}
	}
	if writeTimeout := os.Getenv("SERVER_WRITE_TIMEOUT"); writeTimeout != "" {
		if t, err := time.ParseDuration(writeTimeout); err == nil {
			cfg.Server.WriteTimeout = t
		}
	}
	// ---------------------------------------------------------------------------
	// DEVICES - PPS source configuration
	// ---------------------------------------------------------------------------
	if devices := os.Getenv("PPS_DEVICES"); devices != "" {
		cfg.Devices = cfg.Devices[:0]
		for _, path := range splitAndTrim(devices) {
			cfg.Devices = append(cfg.Devices, DeviceConfig{
				Path:            path,
				Name:            path,
				EnableKernelPPS: true,
			})
		}
	}

	// ---------------------------------------------------------------------------
	// REFCLOCK - NTP cross-check configuration
	// ---------------------------------------------------------------------------
	if enabled := os.Getenv("REFCLOCK_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			cfg.Refclock.Enabled = b
		}
	}
	if server := os.Getenv("REFCLOCK_SERVER"); server != "" {
		cfg.Refclock.Server = server
	}
	if interval := os.Getenv("REFCLOCK_INTERVAL"); interval != "" {
		if t, err := time.ParseDuration(interval); err == nil {
			cfg.Refclock.Interval = t
		}
	}
	if timeout := os.Getenv("REFCLOCK_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Refclock.Timeout = t
		}
	}

	// ---------------------------------------------------------------------------
	// SHM - ntpd shared-memory sink configuration
	// ---------------------------------------------------------------------------
	if enabled := os.Getenv("SHM_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			cfg.SHM.Enabled = b
		}
	}
	if unit := os.Getenv("SHM_UNIT"); unit != "" {
		if u, err := strconv.Atoi(unit); err == nil {
			cfg.SHM.Unit = u
		}
	}

	// ---------------------------------------------------------------------------
	// LOGGING - Logging configuration
	// ---------------------------------------------------------------------------
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if enableFile := os.Getenv("LOG_ENABLE_FILE"); enableFile != "" {
		if b, err := strconv.ParseBool(enableFile); err == nil {
			cfg.Logging.EnableFile = b
		}
	}
	if filePath := os.Getenv("LOG_FILE_PATH"); filePath != "" {
		cfg.Logging.FilePath = filePath
	}

	// ---------------------------------------------------------------------------
	// METRICS - Prometheus metrics configuration
	// ---------------------------------------------------------------------------
	if namespace := os.Getenv("METRICS_NAMESPACE"); namespace != "" {
		cfg.Metrics.Namespace = namespace
	}
	if subsystem := os.Getenv("METRICS_SUBSYSTEM"); subsystem != "" {
		cfg.Metrics.Subsystem = subsystem
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
