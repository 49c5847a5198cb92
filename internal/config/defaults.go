package config

import "time"

// ApplyDefaults sets default values for unspecified configuration fields
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9123
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}

	// Device defaults
	for i := range cfg.Devices {
		if cfg.Devices[i].Name == "" {
			cfg.Devices[i].Name = cfg.Devices[i].Path
		}
	}

	// Refclock defaults (disabled by default)
	if cfg.Refclock.Server == "" {
		cfg.Refclock.Server = "pool.ntp.org"
	}
	if cfg.Refclock.Interval == 0 {
		cfg.Refclock.Interval = 64 * time.Second
	}
	if cfg.Refclock.Timeout == 0 {
		cfg.Refclock.Timeout = 5 * time.Second
	}
	if cfg.Refclock.Version == 0 {
		cfg.Refclock.Version = 4
	}

	// SHM defaults (disabled by default; unit 2 is the first segment that
	// does not require root on the ntpd side)
	if cfg.SHM.Unit == 0 {
		cfg.SHM.Unit = 2
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Metrics defaults
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "pps"
	}
	if cfg.Metrics.Labels == nil {
		cfg.Metrics.Labels = make(map[string]string)
	}
}

// DefaultConfig returns a configuration with all defaults applied
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
