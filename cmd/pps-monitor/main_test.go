package main

import (
	"os"
	"testing"

	"github.com/maximewewer/pps-monitor/internal/config"
	"github.com/maximewewer/pps-monitor/pkg/metrics"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_FromFile(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configFile := tmpDir + "/test-config.yaml"

	configContent := `
server:
  port: 9123
devices:
  - path: /dev/ttyS0
logging:
  level: info
`
	err := os.WriteFile(configFile, []byte(configContent), 0644)
	assert.NoError(t, err)

	cfg, err := loadConfig(configFile)
	assert.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, 9123, cfg.Server.Port)
	assert.Len(t, cfg.Devices, 1)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	// Test with empty file (loads from env)
	cfg, err := loadConfig("")
	assert.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestBuildMonitors_MissingDevice(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Devices = []config.DeviceConfig{
		{Path: "/nonexistent/tty", Name: "ghost"},
	}

	monitors := buildMonitors(cfg, metrics.NewPPSMetrics(), nil)

	// an unopenable device is skipped, not fatal
	assert.Empty(t, monitors)
}
