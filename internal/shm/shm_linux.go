//go:build linux
// +build linux

package shm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Attach maps the ntpd SHM segment for the given unit, creating it when
// absent. Units 0 and 1 are conventionally created root-only (0600),
// units 2 and up world-readable (0666), matching what ntpd itself does.
func Attach(unit int) (*Segment, error) {
	perm := 0o666
	if unit < 2 {
		perm = 0o600
	}

	id, err := unix.SysvShmGet(ntpdSHMKey+unit, shmTimeSize, unix.IPC_CREAT|perm)
	if err != nil {
		return nil, fmt.Errorf("shmget unit %d: %w", unit, err)
	}

	mem, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("shmat unit %d: %w", unit, err)
	}
	if len(mem) < shmTimeSize {
		_ = unix.SysvShmDetach(mem)
		return nil, fmt.Errorf("shm unit %d: segment too small (%d bytes)", unit, len(mem))
	}

	t := (*shmTime)(unsafe.Pointer(&mem[0]))
	return initSegment(t, unit, func() error {
		return unix.SysvShmDetach(mem)
	}), nil
}
