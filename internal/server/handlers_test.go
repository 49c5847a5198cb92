package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maximewewer/pps-monitor/internal/config"
	"github.com/maximewewer/pps-monitor/internal/pps"
	"github.com/maximewewer/pps-monitor/pkg/timespec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatusSource struct {
	name  string
	delta pps.TimeDelta
	count uint64
}

func (f *fakeStatusSource) Name() string                     { return f.name }
func (f *fakeStatusSource) LastPPS() (pps.TimeDelta, uint64) { return f.delta, f.count }

func TestNewHandlers(t *testing.T) {
	cfg := &config.Config{}
	registry := prometheus.NewRegistry()

	handlers := NewHandlers(cfg, registry, nil)

	assert.NotNil(t, handlers)
	assert.NotNil(t, handlers.config)
	assert.NotNil(t, handlers.registry)
}

func TestHandlers_MetricsHandler(t *testing.T) {
	cfg := &config.Config{}
	registry := prometheus.NewRegistry()

	// Register a test metric
	testGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_metric",
		Help: "Test metric",
	})
	registry.MustRegister(testGauge)
	testGauge.Set(42)

	handlers := NewHandlers(cfg, registry, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handlers.MetricsHandler(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, w.Body.String(), "test_metric")
	assert.Contains(t, w.Body.String(), "42")
}

func TestHandlers_HealthHandler(t *testing.T) {
	handlers := NewHandlers(&config.Config{}, prometheus.NewRegistry(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handlers.HealthHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.Contains(t, w.Body.String(), "pps-monitor")
}

func TestHandlers_StatusHandler(t *testing.T) {
	sources := []StatusSource{
		&fakeStatusSource{
			name: "gps0",
			delta: pps.TimeDelta{
				Real:  timespec.Timespec{Sec: 1_700_000_001, Nsec: 0},
				Clock: timespec.Timespec{Sec: 1_700_000_000, Nsec: 999_998_500},
			},
			count: 42,
		},
		&fakeStatusSource{name: "gps1"},
	}
	handlers := NewHandlers(&config.Config{}, prometheus.NewRegistry(), sources)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()

	handlers.StatusHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		Devices []deviceStatus `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Devices, 2)

	assert.Equal(t, "gps0", body.Devices[0].Device)
	assert.Equal(t, uint64(42), body.Devices[0].PulseCount)
	assert.Equal(t, "1700000001.000000000", body.Devices[0].LastReal)
	assert.InDelta(t, 0.0000015, body.Devices[0].OffsetSeconds, 1e-9)

	// a device that has not published yet reports only its count
	assert.Equal(t, "gps1", body.Devices[1].Device)
	assert.Equal(t, uint64(0), body.Devices[1].PulseCount)
	assert.Empty(t, body.Devices[1].LastReal)
}

func TestHandlers_IndexHandler(t *testing.T) {
	cfg := &config.Config{
		Devices: []config.DeviceConfig{{Path: "/dev/ttyS0"}},
	}
	handlers := NewHandlers(cfg, prometheus.NewRegistry(), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handlers.IndexHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "PPS Monitor")
	assert.Contains(t, w.Body.String(), "/status")
	assert.Contains(t, w.Body.String(), "1 configured")
}

func TestHandlers_IndexHandler_NotFound(t *testing.T) {
	handlers := NewHandlers(&config.Config{}, prometheus.NewRegistry(), nil)

	req := httptest.NewRequest(http.MethodGet, "/bogus", nil)
	w := httptest.NewRecorder()

	handlers.IndexHandler(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
