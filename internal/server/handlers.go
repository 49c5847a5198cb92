package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/maximewewer/pps-monitor/internal/config"
	"github.com/maximewewer/pps-monitor/internal/pps"
	"github.com/maximewewer/pps-monitor/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusSource is a monitor as seen by the /status endpoint.
type StatusSource interface {
	Name() string
	LastPPS() (pps.TimeDelta, uint64)
}

// Handlers contains HTTP request handlers
type Handlers struct {
	config   *config.Config
	registry *prometheus.Registry
	sources  []StatusSource
}

// NewHandlers creates a new handlers instance
func NewHandlers(cfg *config.Config, registry *prometheus.Registry, sources []StatusSource) *Handlers {
	return &Handlers{
		config:   cfg,
		registry: registry,
		sources:  sources,
	}
}

// MetricsHandler serves Prometheus metrics
func (h *Handlers) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	handler := promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		ErrorLog:      &loggerAdapter{},
		ErrorHandling: promhttp.ContinueOnError,
	})

	handler.ServeHTTP(w, r)
}

// HealthHandler returns health status
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := `{"status":"healthy","service":"pps-monitor"}`
	w.Write([]byte(response))
}

// deviceStatus is one device's entry in the /status response.
type deviceStatus struct {
	Device        string  `json:"device"`
	PulseCount    uint64  `json:"pulse_count"`
	LastReal      string  `json:"last_real,omitempty"`
	LastClock     string  `json:"last_clock,omitempty"`
	OffsetSeconds float64 `json:"offset_seconds,omitempty"`
}

// StatusHandler reports per-device pulse state as JSON. A device with
// pulse_count zero has not published yet; consumers watch the count for
// progress the same way lastpps callers do.
func (h *Handlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	statuses := make([]deviceStatus, 0, len(h.sources))
	for _, src := range h.sources {
		delta, count := src.LastPPS()
		st := deviceStatus{
			Device:     src.Name(),
			PulseCount: count,
		}
		if count > 0 {
			offset := delta.Offset()
			st.LastReal = delta.Real.String()
			st.LastClock = delta.Clock.String()
			st.OffsetSeconds = float64(offset.Sec) + float64(offset.Nsec)/1e9
		}
		statuses = append(statuses, st)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"devices": statuses,
	}); err != nil {
		logger.Error("server", "Failed to encode status response", err)
	}
}

// IndexHandler serves the index page
func (h *Handlers) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)

	// Build HTML response without fmt
	html := `<!DOCTYPE html>
<html>
<head>
    <title>PPS Monitor</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        h1 { color: #333; }
        ul { list-style-type: none; padding: 0; }
        li { margin: 10px 0; }
        a { color: #0066cc; text-decoration: none; }
        a:hover { text-decoration: underline; }
        .info { background-color: #f0f0f0; padding: 15px; border-radius: 5px; }
    </style>
</head>
<body>
    <h1>PPS Monitor</h1>
    <div class="info">
        <h2>Available Endpoints:</h2>
        <ul>
            <li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
            <li><a href="/health">/health</a> - Health check</li>
            <li><a href="/status">/status</a> - Per-device pulse state</li>
        </ul>
        <h2>Configuration:</h2>
        <ul>
            <li>PPS Devices: ` + strconv.Itoa(len(h.config.Devices)) + ` configured</li>
            <li>Refclock cross-check: ` + strconv.FormatBool(h.config.Refclock.Enabled) + `</li>
            <li>NTP SHM sink: ` + strconv.FormatBool(h.config.SHM.Enabled) + `</li>
        </ul>
    </div>
</body>
</html>`

	w.Write([]byte(html))
}

// loggerAdapter adapts pkg/logger to promhttp logger interface
type loggerAdapter struct{}

func (l *loggerAdapter) Println(v ...interface{}) {
	// Convert v to string without fmt
	msg := ""
	for i, val := range v {
		if i > 0 {
			msg += " "
		}
		if s, ok := val.(string); ok {
			msg += s
		} else if err, ok := val.(error); ok {
			msg += err.Error()
		}
	}
	logger.Error("promhttp", msg, nil)
}
