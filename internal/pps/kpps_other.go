//go:build !linux
// +build !linux

package pps

// NewKernelPPS is a stub for platforms without a supported RFC2783
// implementation. Safe to call; the caller falls back to the user-space
// path.
func NewKernelPPS(fd int, device string) (KernelPPS, error) {
	return nil, ErrKernelUnsupported
}
