//go:build !linux
// +build !linux

package pps

// OpenDevice is a stub for platforms without the serial ioctls the
// monitor depends on.
func OpenDevice(path string) (int, error) {
	return -1, ErrUnsupportedPlatform
}

// CloseDevice matches OpenDevice on unsupported platforms.
func CloseDevice(fd int) error {
	return nil
}
