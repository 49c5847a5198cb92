package pps

import (
	"github.com/maximewewer/pps-monitor/pkg/timespec"
)

// Edge is one observation of the user-space wait path: the host realtime
// clock sampled immediately after a line transition, and the post-edge
// modem-control bitmap masked to the monitored lines.
type Edge struct {
	At    timespec.Timespec
	State int
}

// EdgeSource is the user-space pulse capture path. The split between Wait
// and Snapshot exists so the worker can copy out the stashed fix time
// between the wakeup and the clock read, keeping the latency-critical
// section identical for the real device and for scripted test sources.
type EdgeSource interface {
	// Wait blocks until any monitored modem-control line changes state.
	Wait() error

	// Snapshot samples the realtime clock and then the masked line
	// bitmap. Called exactly once per successful Wait.
	Snapshot() (Edge, error)

	// Close releases the source. A blocked Wait fails afterwards.
	Close() error
}

// KernelPPS is the RFC2783 capture path. Implementations hold an open
// capture handle bound to the device.
type KernelPPS interface {
	// Fetch returns the most recent assert and clear timestamps. With
	// poll set the fetch returns immediately (the caller knows an edge
	// just fired); otherwise it may block up to one second.
	Fetch(poll bool) (assert, clear timespec.Timespec, err error)

	// Close destroys the capture handle.
	Close() error
}

// TimeDelta is one accepted pulse: Real is the inferred true UTC instant
// of the pulse, Clock the host realtime reading at edge capture.
type TimeDelta struct {
	Real  timespec.Timespec
	Clock timespec.Timespec
}

// Offset returns Real - Clock, the instantaneous host clock error.
func (td TimeDelta) Offset() timespec.Timespec {
	return td.Real.Sub(td.Clock)
}

// Edge polarities. Used as indices into the per-polarity pulse history.
const (
	edgeClear  = 0
	edgeAssert = 1
)
