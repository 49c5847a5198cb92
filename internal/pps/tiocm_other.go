//go:build !linux
// +build !linux

package pps

// NewEdgeSource is a stub for platforms without TIOCMIWAIT.
func NewEdgeSource(fd int, device string) (EdgeSource, error) {
	return nil, ErrUnsupportedPlatform
}
