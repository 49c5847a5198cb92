//go:build linux
// +build linux

package pps

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/maximewewer/pps-monitor/pkg/timespec"
)

// Monitored modem-control lines: Carrier-Detect, Ring-Indicator and
// Clear-To-Send. TIOCM_CAR is the CD synonym; keeping both costs nothing
// and survives headers that only define one.
const ppsLineMask = unix.TIOCM_CD | unix.TIOCM_CAR | unix.TIOCM_RI | unix.TIOCM_CTS

// tiocmSource waits for PPS transitions on serial port control lines via
// the (not standardized) TIOCMIWAIT ioctl. Works without privileges,
// costs one scheduler wakeup of latency per edge.
type tiocmSource struct {
	fd     int
	device string
}

// NewEdgeSource builds the user-space capture path for an open serial
// descriptor. The descriptor is duplicated so that Close can cancel a
// blocked wait without disturbing the receiver reader's descriptor.
func NewEdgeSource(fd int, device string) (EdgeSource, error) {
	if _, err := unix.IoctlGetTermios(fd, unix.TCGETS); err != nil {
		return nil, fmt.Errorf("%s: %w", device, ErrNotTerminal)
	}
	dup, err := unix.Dup(fd)
	if err != nil {
		return nil, fmt.Errorf("dup %s: %w", device, err)
	}
	unix.CloseOnExec(dup)
	return &tiocmSource{fd: dup, device: device}, nil
}

// Wait blocks in TIOCMIWAIT until any monitored line changes state.
func (s *tiocmSource) Wait() error {
	if err := unix.IoctlSetInt(s.fd, unix.TIOCMIWAIT, ppsLineMask); err != nil {
		return fmt.Errorf("%w on %s: %v", ErrEdgeWait, s.device, err)
	}
	return nil
}

// Snapshot reads the realtime clock and then the line bitmap. Got the
// edge, got the time just after the edge, now quickly get the edge state.
func (s *tiocmSource) Snapshot() (Edge, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts); err != nil {
		return Edge{}, fmt.Errorf("%w: %v", ErrClockRead, err)
	}
	state, err := unix.IoctlGetInt(s.fd, unix.TIOCMGET)
	if err != nil {
		return Edge{}, fmt.Errorf("%w on %s: %v", ErrStateRead, s.device, err)
	}
	return Edge{
		At:    timespec.Timespec{Sec: int64(ts.Sec), Nsec: int64(ts.Nsec)},
		State: state & ppsLineMask,
	}, nil
}

// Close releases the duplicated descriptor; a blocked Wait fails with
// EBADF afterwards.
func (s *tiocmSource) Close() error {
	return unix.Close(s.fd)
}
