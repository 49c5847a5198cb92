package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PPSMetrics encapsulates all PPS monitor metrics
type PPSMetrics struct {
	// Pulse Metrics
	EdgesTotal           *prometheus.CounterVec
	RejectsTotal         *prometheus.CounterVec
	PublicationsTotal    *prometheus.CounterVec
	LastOffsetSeconds    *prometheus.GaugeVec
	CycleMicroseconds    *prometheus.GaugeVec
	DurationMicroseconds *prometheus.GaugeVec
	KernelPPSActive      *prometheus.GaugeVec

	// Refclock Cross-check Metrics
	RefclockOffsetSeconds     *prometheus.GaugeVec
	RefclockDivergenceSeconds *prometheus.GaugeVec
	RefclockQueriesTotal      *prometheus.CounterVec

	// Exporter Operational Metrics. Runtime and GC state comes from the
	// standard Go collector; nothing is duplicated here.
	ExporterBuildInfo         *prometheus.GaugeVec
	ExporterDevicesConfigured prometheus.Gauge
}

// NewPPSMetrics creates all PPS monitor metrics with the default "pps" namespace
func NewPPSMetrics() *PPSMetrics {
	return NewPPSMetricsWithConfig("pps", "")
}

// NewPPSMetricsWithConfig creates and initializes all PPS monitor metrics with custom namespace and subsystem
func NewPPSMetricsWithConfig(namespace, subsystem string) *PPSMetrics {
	return &PPSMetrics{
		EdgesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "edges_total",
				Help:      "Observed pulse edges by outcome (accepted or rejected)",
			},
			[]string{"device", "outcome"},
		),
		RejectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rejects_total",
				Help:      "Rejected pulse edges by rejection reason",
			},
			[]string{"device", "reason"},
		),
		PublicationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "publications_total",
				Help:      "Accepted pulses published to downstream time consumers",
			},
			[]string{"device"},
		),
		LastOffsetSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "last_offset_seconds",
				Help:      "Offset between inferred true UTC and host clock at the last accepted pulse",
			},
			[]string{"device"},
		),
		CycleMicroseconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cycle_microseconds",
				Help:      "Interval between consecutive same-polarity edges at the last accepted pulse",
			},
			[]string{"device"},
		),
		DurationMicroseconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "duration_microseconds",
				Help:      "Interval from the opposite-polarity edge at the last accepted pulse",
			},
			[]string{"device"},
		),
		KernelPPSActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "kernel_pps_active",
				Help:      "Whether kernel RFC2783 capture is in use for the device (1) or the user-space path only (0)",
			},
			[]string{"device"},
		),

		RefclockOffsetSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "refclock_offset_seconds",
				Help:      "Offset reported by the NTP reference server",
			},
			[]string{"server"},
		),
		RefclockDivergenceSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "refclock_divergence_seconds",
				Help:      "Absolute difference between the PPS-derived offset and the NTP reference offset",
			},
			[]string{"device", "server"},
		),
		RefclockQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "refclock_queries_total",
				Help:      "NTP reference queries by result (success or error)",
			},
			[]string{"server", "result"},
		),

		ExporterBuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "exporter_build_info",
				Help:      "Build information of the PPS monitor",
			},
			[]string{"version", "commit", "go_version"},
		),
		ExporterDevicesConfigured: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "exporter_devices_configured",
				Help:      "Number of configured PPS devices",
			},
		),
	}
}

func (m *PPSMetrics) getAllMetrics() []prometheus.Collector {
	return []prometheus.Collector{
		// Pulse metrics
		m.EdgesTotal,
		m.RejectsTotal,
		m.PublicationsTotal,
		m.LastOffsetSeconds,
		m.CycleMicroseconds,
		m.DurationMicroseconds,
		m.KernelPPSActive,

		// Refclock metrics
		m.RefclockOffsetSeconds,
		m.RefclockDivergenceSeconds,
		m.RefclockQueriesTotal,

		// Exporter operational metrics
		m.ExporterBuildInfo,
		m.ExporterDevicesConfigured,
	}
}

// Describe implements prometheus.Collector interface
func (m *PPSMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, metric := range m.getAllMetrics() {
		metric.Describe(ch)
	}
}

// Collect implements prometheus.Collector interface
func (m *PPSMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, metric := range m.getAllMetrics() {
		metric.Collect(ch)
	}
}
