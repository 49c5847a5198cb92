package pps

import "errors"

// Error taxonomy for the monitor. Setup-transient conditions (kernel
// capture unavailable, device discovery misses) are logged and degrade to
// the user-space path; loop-fatal conditions end the worker.
var (
	// ErrNotTerminal indicates the device descriptor is not a tty.
	ErrNotTerminal = errors.New("device is not a terminal")

	// ErrKernelUnsupported indicates RFC2783 capture is not available on
	// this platform or device.
	ErrKernelUnsupported = errors.New("kernel PPS not supported")

	// ErrEdgeWait indicates the modem-line wait failed.
	ErrEdgeWait = errors.New("edge wait failed")

	// ErrClockRead indicates the realtime clock could not be read.
	ErrClockRead = errors.New("clock read failed")

	// ErrStateRead indicates the modem-line bitmap could not be read.
	ErrStateRead = errors.New("line state read failed")

	// ErrSourceClosed indicates the edge source was closed, normally as
	// part of deactivation.
	ErrSourceClosed = errors.New("edge source closed")

	// ErrUnsupportedPlatform indicates this build has no modem-line wait
	// primitive at all.
	ErrUnsupportedPlatform = errors.New("user-space PPS not supported on this platform")
)
