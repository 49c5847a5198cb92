// Package refclock cross-checks the PPS-derived clock offset against an
// NTP server. Purely diagnostic: large divergence means either the GNSS
// fix feed or the host clock is lying, and someone should know before a
// downstream daemon trusts the pulse. Nothing here adjusts any clock.
package refclock

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/beevik/ntp"

	"github.com/maximewewer/pps-monitor/internal/pps"
	"github.com/maximewewer/pps-monitor/pkg/logger"
	"github.com/maximewewer/pps-monitor/pkg/metrics"
)

// PPSSource is the slice of a monitor the checker needs: a label and the
// last published delta with its progress counter.
type PPSSource interface {
	Name() string
	LastPPS() (pps.TimeDelta, uint64)
}

// Checker periodically queries one NTP server and compares its offset
// with the offsets derived from accepted pulses.
type Checker struct {
	server   string
	version  int
	timeout  time.Duration
	interval time.Duration
	sources  []PPSSource
	metrics  *metrics.PPSMetrics

	// lastCount tracks per-source progress so a stalled monitor is not
	// compared against a stale delta.
	lastCount map[string]uint64
}

// New creates a checker for the given server and monitors.
func New(server string, version int, timeout, interval time.Duration, sources []PPSSource, m *metrics.PPSMetrics) *Checker {
	return &Checker{
		server:    server,
		version:   version,
		timeout:   timeout,
		interval:  interval,
		sources:   sources,
		metrics:   m,
		lastCount: make(map[string]uint64),
	}
}

// Run executes the check loop until the context is cancelled.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.check(ctx)
		}
	}
}

// check performs one NTP query and updates divergence per source.
func (c *Checker) check(ctx context.Context) {
	ntpOffset, err := c.query(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RefclockQueriesTotal.WithLabelValues(c.server, "error").Inc()
		}
		logger.WarnFields("refclock", "NTP reference query failed", map[string]interface{}{
			"server": c.server,
			"error":  err.Error(),
		})
		return
	}

	if c.metrics != nil {
		c.metrics.RefclockQueriesTotal.WithLabelValues(c.server, "success").Inc()
		c.metrics.RefclockOffsetSeconds.WithLabelValues(c.server).Set(ntpOffset.Seconds())
	}

	for _, src := range c.sources {
		delta, count := src.LastPPS()
		if count == 0 || count == c.lastCount[src.Name()] {
			// no pulse since the previous check; nothing fresh to compare
			continue
		}
		c.lastCount[src.Name()] = count

		off := delta.Offset()
		ppsOffset := time.Duration(off.Sec)*time.Second + time.Duration(off.Nsec)
		divergence := math.Abs((ppsOffset - ntpOffset).Seconds())

		if c.metrics != nil {
			c.metrics.RefclockDivergenceSeconds.WithLabelValues(src.Name(), c.server).Set(divergence)
		}
		logger.DebugFields("refclock", "PPS vs NTP comparison", map[string]interface{}{
			"device":             src.Name(),
			"server":             c.server,
			"pps_offset":         ppsOffset.Seconds(),
			"ntp_offset":         ntpOffset.Seconds(),
			"divergence_seconds": divergence,
		})
	}
}

// query performs a single NTP query with context cancellation. The query
// library has no context support, so it runs in a goroutine writing to a
// buffered channel that survives an abandoned wait.
func (c *Checker) query(ctx context.Context) (time.Duration, error) {
	opts := ntp.QueryOptions{
		Timeout: c.timeout,
		Version: c.version,
	}

	type queryResult struct {
		response *ntp.Response
		err      error
	}

	resultChan := make(chan queryResult, 1)

	go func() {
		resp, err := ntp.QueryWithOptions(c.server, opts)
		resultChan <- queryResult{response: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("query context cancelled: %w", ctx.Err())
	case result := <-resultChan:
		if result.err != nil {
			return 0, fmt.Errorf("ntp query to %s failed: %w", c.server, result.err)
		}
		if err := result.response.Validate(); err != nil {
			return 0, fmt.Errorf("ntp response from %s invalid: %w", c.server, err)
		}
		return result.response.ClockOffset, nil
	}
}
