//go:build linux
// +build linux

package pps

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// OpenDevice opens a serial PPS source and verifies it is a terminal.
// TIOCMIWAIT, TIOCSETD and the termios check all need the raw
// descriptor, which serial-port libraries do not expose. Line parameters
// are the receiver reader's business; the monitor only watches control
// lines.
func OpenDevice(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return -1, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := unix.IoctlGetTermios(fd, unix.TCGETS); err != nil {
		_ = unix.Close(fd)
		return -1, fmt.Errorf("%s: %w", path, ErrNotTerminal)
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

// CloseDevice releases a descriptor from OpenDevice.
func CloseDevice(fd int) error {
	return unix.Close(fd)
}
