// Package pps implements the pulse-per-second monitor: one worker per
// serial-attached GNSS receiver that watches the hardware timing pulse,
// correlates each accepted edge with the last in-band fix time, and
// publishes (true UTC instant, host clock instant) pairs.
//
// Two capture paths are in play. The kernel path (RFC2783) timestamps
// edges inside the kernel and carries the least latency and jitter; on
// Linux it needs root at setup time. The user-space path waits for
// modem-control line transitions and timestamps them after wakeup. The
// user-space path drives the loop; the kernel path, when available,
// replaces the published timestamp with the kernel-captured one.
package pps

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/maximewewer/pps-monitor/pkg/logger"
	"github.com/maximewewer/pps-monitor/pkg/metrics"
	"github.com/maximewewer/pps-monitor/pkg/timespec"
)

// Hooks are the monitor's outbound capabilities. All fields are optional
// and immutable after Activate; shutdown is signalled through Deactivate,
// never by clearing a hook.
type Hooks struct {
	// Report is invoked per accepted pulse before Publish and may return
	// a diagnostic tag for the logs. Report errors are non-fatal.
	Report func(*Monitor, TimeDelta) string

	// Publish is invoked per accepted pulse; intended terminus for time
	// sinks such as an ntpd shared-memory segment.
	Publish func(*Monitor, TimeDelta)

	// Wrap is invoked once when the worker exits.
	Wrap func(*Monitor)
}

// Options tune one monitor instance.
type Options struct {
	// Publish5Hz opts in to publishing 5 Hz pulses. The sub-second phase
	// of a 5 Hz edge is unknowable from the edge alone, so by default a
	// 5 Hz pulse is classified but never published.
	Publish5Hz bool

	// Metrics receives per-device instrumentation when non-nil.
	Metrics *metrics.PPSMetrics
}

// Monitor owns the PPS worker for one device. The zero value is not
// usable; construct with New.
type Monitor struct {
	name   string
	source EdgeSource
	kpps   KernelPPS // nil when the kernel path is unavailable
	hooks  Hooks
	opts   Options

	// rejectLog throttles per-edge rejection logging; a flapping line at
	// 5 Hz must not flood the log.
	rejectLog *rate.Limiter

	// sleep is the cool-down sleep, interruptible by stop. Replaced in
	// tests.
	sleep func(time.Duration)

	started atomic.Bool
	stop    atomic.Bool
	stopCh  chan struct{}
	done    chan struct{}

	mu         sync.Mutex // guards the four fields below
	fixinReal  timespec.Timespec
	fixinClock timespec.Timespec
	ppsoutLast TimeDelta
	ppsoutCnt  uint64

	activateOnce sync.Once
}

// New creates a monitor for the named device. source must be non-nil;
// kpps may be nil when kernel capture is unavailable.
func New(name string, source EdgeSource, kpps KernelPPS, hooks Hooks, opts Options) *Monitor {
	m := &Monitor{
		name:      name,
		source:    source,
		kpps:      kpps,
		hooks:     hooks,
		opts:      opts,
		rejectLog: rate.NewLimiter(rate.Every(time.Second), 10),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	m.sleep = m.stoppableSleep
	return m
}

// Name returns the device label.
func (m *Monitor) Name() string {
	return m.name
}

// Activate launches the worker. Idempotent; calling it again after the
// first launch has no effect.
func (m *Monitor) Activate() {
	m.activateOnce.Do(func() {
		if m.kpps != nil {
			logger.Warnf("pps", "KPPS kernel PPS will be used on %s", m.name)
		}
		if m.opts.Metrics != nil {
			active := 0.0
			if m.kpps != nil {
				active = 1
			}
			m.opts.Metrics.KernelPPSActive.WithLabelValues(m.name).Set(active)
		}
		m.started.Store(true)
		go m.run()
		logger.Debugf("pps", "PPS worker launched on %s", m.name)
	})
}

// Deactivate requests a clean worker exit and unblocks a pending edge
// wait by closing the source. Blocks until the worker has run its wrap
// hook.
func (m *Monitor) Deactivate() {
	if m.stop.CompareAndSwap(false, true) {
		close(m.stopCh)
		if err := m.source.Close(); err != nil {
			logger.Debugf("pps", "PPS source close on %s: %v", m.name, err)
		}
	}
	if m.started.Load() {
		<-m.done
	}
}

// StashFixTime records the in-band GPS fix UTC instant and the host clock
// instant at its arrival. Called by the receiver reader on every fix;
// this is the only way data passes in.
func (m *Monitor) StashFixTime(real, clock timespec.Timespec) {
	m.mu.Lock()
	m.fixinReal = real
	m.fixinClock = clock
	m.mu.Unlock()
}

// LastPPS returns the most recently published TimeDelta and the accepted
// pulse count. The count is an opaque monotonic value by which consumers
// detect progress; this is the only way data passes out.
func (m *Monitor) LastPPS() (TimeDelta, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ppsoutLast, m.ppsoutCnt
}

// copyFixTime grabs the stashed fix pair. Kept tiny: it sits in the
// latency-critical window right after the edge wakeup.
func (m *Monitor) copyFixTime() (real, clock timespec.Timespec) {
	m.mu.Lock()
	real = m.fixinReal
	clock = m.fixinClock
	m.mu.Unlock()
	return real, clock
}

func (m *Monitor) stopping() bool {
	return m.stop.Load()
}

func (m *Monitor) stoppableSleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-m.stopCh:
	}
}

// run is the worker loop. It exits on Deactivate or on a loop-fatal
// capture error, then runs the wrap hook and destroys the kernel handle.
func (m *Monitor) run() {
	defer func() {
		if m.kpps != nil {
			if err := m.kpps.Close(); err != nil {
				logger.Debugf("pps", "KPPS handle close on %s: %v", m.name, err)
			} else {
				logger.Debugf("pps", "KPPS descriptor cleaned up on %s", m.name)
			}
		}
		if m.hooks.Wrap != nil {
			m.hooks.Wrap(m)
		}
		logger.Debugf("pps", "PPS worker on %s exited", m.name)
		close(m.done)
	}()

	// stateLast is the masked bitmap after the previous wakeup; pulse
	// holds the last edge timestamp per polarity, pulseKpps likewise for
	// the kernel path. lastSecondUsed dedups publications per UTC second.
	var (
		stateLast      int
		unchanged      int
		pulse          [2]timespec.Timespec
		pulseKpps      [2]timespec.Timespec
		lastSecondUsed int64
	)

	// Wait for a status change on any handshake line. Just one edge per
	// iteration: no spinning for the trailing edge of a pulse. Waiting on
	// all lines at once removes a configuration switch; no receiver
	// drives more than one of them.
	for !m.stopping() {
		if err := m.source.Wait(); err != nil {
			if m.stopping() {
				break
			}
			logger.Warnf("pps", "PPS edge wait on %s failed: %v", m.name, err)
			break
		}
		if m.stopping() {
			break
		}

		// Start of the time-critical section: fix copy-out, clock read,
		// line bitmap, in that order.
		fixReal, fixClock := m.copyFixTime()
		edge, err := m.source.Snapshot()
		if err != nil {
			logger.Error("pps", "PPS edge snapshot on "+m.name+" failed", err)
			break
		}
		// end of the time-critical section

		// No valid in-band time stashed yet: nothing to correlate with.
		// Some receivers always emit PPS, valid or not, and PPS with no
		// fix time is common while autobauding.
		if fixReal.Sec == 0 {
			continue
		}

		state := edge.State
		clockTs := edge.At
		pol := edgeClear
		if state > stateLast {
			pol = edgeAssert
		}

		// Kernel path: fetch the timestamp the kernel already captured
		// for this edge. Non-blocking, the wakeup just happened.
		okKpps := false
		kppsPol := edgeClear
		var kppsAssert, kppsClear timespec.Timespec
		if m.kpps != nil {
			assertTs, clearTs, err := m.kpps.Fetch(true)
			if err != nil {
				logger.Error("pps", "KPPS fetch on "+m.name+" failed", err)
			} else {
				kppsAssert, kppsClear = assertTs, clearTs
				tsKpps := clearTs
				if clearTs.Before(assertTs) {
					kppsPol = edgeAssert
					tsKpps = assertTs
				}
				cycleKpps := tsKpps.SubUs(pulseKpps[kppsPol])
				durationKpps := tsKpps.SubUs(pulseKpps[1-kppsPol])
				pulseKpps[kppsPol] = tsKpps
				logger.KPPS(m.name, "fetch", map[string]interface{}{
					"assert":      assertTs.String(),
					"clear":       clearTs.String(),
					"edge":        kppsPol,
					"cycle_us":    cycleKpps,
					"duration_us": durationKpps,
				})
				if kppsInWindow(cycleKpps) {
					okKpps = true
				}
			}
		}

		cycle := clockTs.SubUs(pulse[pol])
		duration := clockTs.SubUs(pulse[1-pol])

		if state == stateLast {
			// Some pulses are so short the bitmap never changes between
			// the wakeup and the TIOCMGET.
			if invisibleCycle(cycle) {
				duration = 0
				unchanged = 0
				logger.PPS(m.name, "invisible-pulse", nil)
			} else if unchanged++; unchanged == 10 {
				// not really unchanged, just out of bounds
				unchanged = 1
				logger.Warnf("pps", "PPS edge wait returns unchanged state on %s, sleeping 10s", m.name)
				m.sleep(10 * time.Second)
			}
		} else {
			unchanged = 0
		}
		stateLast = state
		// save this edge so we know the next cycle time
		pulse[pol] = clockTs

		if unchanged > 0 {
			// strange, try again
			continue
		}

		v := classify(cycle, duration, pol)
		if v.ok && lastSecondUsed >= fixReal.Sec {
			v.ok = false
			v.tag = "this second already handled"
		}
		if v.ok && v.kind == kind5Hz && !m.opts.Publish5Hz {
			// Which fifth of the second this edge marks is unknown;
			// without explicit operator opt-in the pulse is dropped.
			v.ok = false
			v.tag = "5Hz pulse with unknown phase"
		}

		if !v.ok {
			m.reject(v.tag, cycle, duration, pol)
			continue
		}

		// Pick the capture instant: the kernel timestamp of the matching
		// polarity when the kernel path validated this cycle, otherwise
		// the user-space snapshot.
		chosen := clockTs
		if okKpps {
			if kppsPol == edgeAssert {
				chosen = kppsAssert
			} else {
				chosen = kppsClear
			}
		}

		// The in-band sentence for second N arrives after the pulse that
		// marks second N+1, hence the increment.
		ppstimes := TimeDelta{
			Real:  timespec.Timespec{Sec: fixReal.Sec + 1, Nsec: 0},
			Clock: chosen,
		}

		delay := ppstimes.Clock.Sub(fixClock)
		if delay.Sec < 0 || delay.Nsec < 0 {
			m.reject("system clock went backwards", cycle, duration, pol)
			continue
		}
		// Allow 1.1 s: one full second plus 100 ms of slew. Anything
		// older means the fix is stale and must not be correlated.
		if delay.Sec >= 2 || (delay.Sec == 1 && delay.Nsec >= 100_000_000) {
			m.reject("timestamp out of range", cycle, duration, pol)
			continue
		}

		lastSecondUsed = fixReal.Sec
		m.publish(ppstimes, cycle, duration)
	}
}

// publish runs the report and publish hooks and exposes the result to
// LastPPS callers.
func (m *Monitor) publish(ppstimes TimeDelta, cycle, duration int64) {
	tag := "no report hook"
	if m.hooks.Report != nil {
		tag = m.hooks.Report(m, ppstimes)
	}
	if m.hooks.Publish != nil {
		m.hooks.Publish(m, ppstimes)
	}

	m.mu.Lock()
	m.ppsoutLast = ppstimes
	m.ppsoutCnt++
	count := m.ppsoutCnt
	m.mu.Unlock()

	logger.Publication(m.name, tag, ppstimes.Real.String(), ppstimes.Clock.String(), count)

	if mx := m.opts.Metrics; mx != nil {
		mx.EdgesTotal.WithLabelValues(m.name, "accepted").Inc()
		mx.PublicationsTotal.WithLabelValues(m.name).Inc()
		mx.CycleMicroseconds.WithLabelValues(m.name).Set(float64(cycle))
		mx.DurationMicroseconds.WithLabelValues(m.name).Set(float64(duration))
		offset := ppstimes.Offset()
		mx.LastOffsetSeconds.WithLabelValues(m.name).Set(
			float64(offset.Sec) + float64(offset.Nsec)/1e9)
	}
}

// reject records a classifier or sanity-check rejection. Rejections are
// normal operation, never errors: a square wave loses half its edges to
// the filter every second, so logging is trace level and throttled.
func (m *Monitor) reject(tag string, cycle, duration int64, pol int) {
	if mx := m.opts.Metrics; mx != nil {
		mx.EdgesTotal.WithLabelValues(m.name, "rejected").Inc()
		mx.RejectsTotal.WithLabelValues(m.name, reasonLabel(tag)).Inc()
	}
	if m.rejectLog.Allow() {
		logger.PPS(m.name, "rejected", map[string]interface{}{
			"reason":      tag,
			"cycle_us":    cycle,
			"duration_us": duration,
			"edge":        pol,
		})
	}
}

// reasonLabel converts a human rejection tag into a metric label value.
func reasonLabel(tag string) string {
	s := strings.ToLower(tag)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ".", "")
	return s
}
