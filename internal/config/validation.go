package config

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	if err := validateDevices(cfg.Devices); err != nil {
		return err
	}

	if err := validateRefclock(&cfg.Refclock); err != nil {
		return err
	}

	if err := validateSHM(&cfg.SHM); err != nil {
		return err
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}

	if err := validateMetrics(&cfg.Metrics); err != nil {
		return err
	}

	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return errors.New("port must be between 1 and 65535, got " + strconv.Itoa(cfg.Port))
	}

	if cfg.ReadTimeout < 1*time.Second || cfg.ReadTimeout > 60*time.Second {
		return errors.New("read_timeout must be between 1s and 60s")
	}

	if cfg.WriteTimeout < 1*time.Second || cfg.WriteTimeout > 60*time.Second {
		return errors.New("write_timeout must be between 1s and 60s")
	}

	return nil
}

func validateDevices(devices []DeviceConfig) error {
	seen := make(map[string]bool, len(devices))
	for i, dev := range devices {
		if dev.Path == "" {
			return errors.New("devices[" + strconv.Itoa(i) + "]: path is required")
		}
		if !strings.HasPrefix(dev.Path, "/") {
			return errors.New("devices[" + strconv.Itoa(i) + "]: path must be absolute, got " + dev.Path)
		}
		if seen[dev.Path] {
			return errors.New("devices[" + strconv.Itoa(i) + "]: duplicate path " + dev.Path)
		}
		seen[dev.Path] = true
	}
	return nil
}

func validateRefclock(cfg *RefclockConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.Server == "" {
		return errors.New("refclock.server is required when refclock is enabled")
	}

	if cfg.Interval < 1*time.Second {
		return errors.New("refclock.interval must be at least 1s")
	}

	if cfg.Timeout < 1*time.Second || cfg.Timeout > 60*time.Second {
		return errors.New("refclock.timeout must be between 1s and 60s")
	}

	if cfg.Version < 2 || cfg.Version > 4 {
		return errors.New("refclock.version must be 2, 3, or 4, got " + strconv.Itoa(cfg.Version))
	}

	return nil
}

func validateSHM(cfg *SHMConfig) error {
	if !cfg.Enabled {
		return nil
	}

	// ntpd conventionally probes units 0-3; larger units work with an
	// explicit unit clause but anything wild is likely a typo.
	if cfg.Unit < 0 || cfg.Unit > 15 {
		return errors.New("shm.unit must be between 0 and 15, got " + strconv.Itoa(cfg.Unit))
	}

	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLevels[cfg.Level] {
		return errors.New("invalid log level (must be trace, debug, info, warn, error, fatal, or panic)")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[cfg.Format] {
		return errors.New("invalid log format (must be json or console)")
	}

	if cfg.EnableFile && cfg.FilePath == "" {
		return errors.New("file_path is required when enable_file is true")
	}

	return nil
}

func validateMetrics(cfg *MetricsConfig) error {
	if cfg.Namespace == "" {
		return errors.New("namespace is required")
	}

	return nil
}
