package testutil

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maximewewer/pps-monitor/pkg/timespec"
)

func TestMakeFixPair(t *testing.T) {
	pulse := timespec.Timespec{Sec: 1_700_000_001, Nsec: 0}
	real, clock := MakeFixPair(1_700_000_000, pulse, 800*time.Millisecond)

	if real.Sec != 1_700_000_000 || real.Nsec != 0 {
		t.Errorf("real = %v, want 1700000000.0", real)
	}
	want := timespec.Timespec{Sec: 1_700_000_000, Nsec: 200_000_000}
	if clock != want {
		t.Errorf("clock = %v, want %v", clock, want)
	}
}

func TestAssertMetricValue(t *testing.T) {
	registry := prometheus.NewRegistry()
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "test",
	}, []string{"device"})
	registry.MustRegister(gauge)
	gauge.WithLabelValues("gps0").Set(7)

	AssertMetricValue(t, registry, "test_gauge", map[string]string{"device": "gps0"}, 7)
	AssertMetricExists(t, registry, "test_gauge", map[string]string{"device": "gps0"})
}

func TestWaitForCondition(t *testing.T) {
	start := time.Now()
	n := 0
	WaitForCondition(t, func() bool {
		n++
		return n >= 3
	}, time.Second, "counter reaches 3")

	if time.Since(start) > time.Second {
		t.Error("condition polling took too long")
	}
}
