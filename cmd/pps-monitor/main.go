package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/maximewewer/pps-monitor/internal/config"
	"github.com/maximewewer/pps-monitor/internal/pps"
	"github.com/maximewewer/pps-monitor/internal/refclock"
	"github.com/maximewewer/pps-monitor/internal/server"
	"github.com/maximewewer/pps-monitor/internal/shm"
	"github.com/maximewewer/pps-monitor/pkg/logger"
	"github.com/maximewewer/pps-monitor/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Build information
	version = "dev"
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		// Use println for version output (user-facing, not logging)
		println("pps-monitor version", version)
		os.Exit(0)
	}

	// Load configuration (before logger is initialized)
	cfg, err := loadConfig(*configFile)
	if err != nil {
		// Cannot use logger yet, write to stderr
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.InitLogger(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		Component:  "pps-monitor",
		EnableFile: cfg.Logging.EnableFile,
	}); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Log startup information
	logger.Startup(version, "", map[string]interface{}{
		"go_version": runtime.Version(),
		"config":     cfg,
	})

	// Assemble the Prometheus registry: the PPS metrics plus the standard
	// Go runtime and process collectors.
	m := metrics.NewPPSMetricsWithConfig(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	registry := prometheus.NewRegistry()
	if err := registry.Register(m); err != nil {
		logger.Fatal("main", "Failed to register metrics", err)
	}
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m.ExporterBuildInfo.WithLabelValues(version, "", runtime.Version()).Set(1)
	m.ExporterDevicesConfigured.Set(float64(len(cfg.Devices)))

	// Optional ntpd SHM sink, shared by all monitors; publications carry
	// the device-specific delta either way.
	var segment *shm.Segment
	if cfg.SHM.Enabled {
		segment, err = shm.Attach(cfg.SHM.Unit)
		if err != nil {
			logger.Error("main", "Failed to attach ntpd SHM segment", err)
		} else {
			defer segment.Close()
			logger.Infof("main", "Publishing to ntpd SHM unit %d", cfg.SHM.Unit)
		}
	}

	// Build one monitor per configured device. Device failures are
	// logged, not fatal: the daemon keeps serving the devices it has.
	monitors := buildMonitors(cfg, m, segment)
	if len(monitors) == 0 {
		logger.Warn("main", "No PPS devices could be activated")
	}
	for _, mon := range monitors {
		mon.Activate()
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sources := make([]server.StatusSource, 0, len(monitors))
	refSources := make([]refclock.PPSSource, 0, len(monitors))
	for _, mon := range monitors {
		sources = append(sources, mon)
		refSources = append(refSources, mon)
	}

	// Optional NTP cross-check of the PPS-derived offsets
	if cfg.Refclock.Enabled {
		checker := refclock.New(
			cfg.Refclock.Server,
			cfg.Refclock.Version,
			cfg.Refclock.Timeout,
			cfg.Refclock.Interval,
			refSources,
			m,
		)
		go checker.Run(ctx)
		logger.Infof("main", "Refclock cross-check against %s every %s",
			cfg.Refclock.Server, cfg.Refclock.Interval)
	}

	// Start HTTP server
	srv := server.New(cfg, registry, sources)
	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Start(ctx)
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.InfoFields("main", "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		cancel()
	case err := <-serverErrChan:
		if err != nil {
			logger.Error("main", "Server error", err)
		}
		cancel()
	}

	// Graceful shutdown: stop the workers first so their wrap hooks run
	// before the process exits.
	for _, mon := range monitors {
		mon.Deactivate()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main", "Server shutdown error", err)
	}

	logger.Shutdown("graceful")
}

// loadConfig loads configuration based on whether a config file is specified
func loadConfig(configFile string) (*config.Config, error) {
	if configFile != "" {
		// Load from YAML file with environment variable overrides
		// Priority: Environment Variables > YAML File > Defaults
		return config.LoadFromYamlWithEnvOverrides(configFile)
	}
	// No config file specified, use environment variables only
	// Priority: Environment Variables > Defaults
	return config.LoadFromEnvVarsOnly()
}

// buildMonitors opens each configured device and assembles its monitor.
func buildMonitors(cfg *config.Config, m *metrics.PPSMetrics, segment *shm.Segment) []*pps.Monitor {
	monitors := make([]*pps.Monitor, 0, len(cfg.Devices))

	for _, dev := range cfg.Devices {
		fd, err := pps.OpenDevice(dev.Path)
		if err != nil {
			logger.Error("main", "Failed to open PPS device "+dev.Path, err)
			continue
		}

		source, err := pps.NewEdgeSource(fd, dev.Path)
		if err != nil {
			logger.Error("main", "Failed to set up edge source for "+dev.Path, err)
			_ = pps.CloseDevice(fd)
			continue
		}

		// Kernel capture is best-effort; everything recoverable degrades
		// to the user-space path.
		var kpps pps.KernelPPS
		if dev.EnableKernelPPS {
			kpps, err = pps.NewKernelPPS(fd, dev.Path)
			if err != nil {
				logger.Warnf("main", "KPPS unavailable for %s: %v", dev.Path, err)
				kpps = nil
			}
		}

		hooks := pps.Hooks{
			Report: func(mon *pps.Monitor, td pps.TimeDelta) string {
				offset := td.Offset()
				return "offset " + offset.String()
			},
			Wrap: func(mon *pps.Monitor) {
				logger.Infof("main", "Monitor for %s wrapped up", mon.Name())
			},
		}
		if segment != nil {
			hooks.Publish = func(mon *pps.Monitor, td pps.TimeDelta) {
				segment.Update(td.Real, td.Clock)
			}
		}

		monitors = append(monitors, pps.New(dev.Name, source, kpps, hooks, pps.Options{
			Publish5Hz: dev.Publish5Hz,
			Metrics:    m,
		}))
	}

	return monitors
}
