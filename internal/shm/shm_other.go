//go:build !linux
// +build !linux

package shm

import "errors"

// Attach is a stub for platforms without SysV shared memory support in
// this build.
func Attach(unit int) (*Segment, error) {
	return nil, errors.New("ntpd SHM segments are not supported on this platform")
}
