// Package shm writes accepted pulses into an ntpd/chrony shared-memory
// refclock segment (driver 28). The segment is the classic SysV region
// keyed 0x4e545030+unit with the shmTime layout; readers poll it, so the
// writer must follow the mode-1 protocol: invalidate, bump count, write,
// bump count, validate. A torn read then shows up as a count mismatch on
// the reader side.
package shm

import (
	"sync/atomic"

	"github.com/maximewewer/pps-monitor/pkg/timespec"
)

// Key base for ntpd SHM segments; unit N lives at ntpdSHMKey + N.
const ntpdSHMKey = 0x4e545030

// shmTime mirrors the layout ntpd's SHM driver expects on LP64.
type shmTime struct {
	Mode                 int32
	Count                int32
	ClockTimeStampSec    int64 // external clock
	ClockTimeStampUSec   int32
	_                    [4]byte
	ReceiveTimeStampSec  int64 // internal clock, when the external value was captured
	ReceiveTimeStampUSec int32
	Leap                 int32
	Precision            int32
	Nsamples             int32
	Valid                int32
	ClockTimeStampNSec   uint32
	ReceiveTimeStampNSec uint32
	Dummy                [8]int32
}

// shmTimeSize is the segment size ntpd allocates.
const shmTimeSize = 96

// Leap indicator values as ntpd defines them.
const (
	LeapNoWarning = 0
	LeapAddSecond = 1
	LeapDelSecond = 2
	LeapNotInSync = 3
)

// Segment is an attached SHM refclock segment.
type Segment struct {
	t      *shmTime
	unit   int
	detach func() error
}

// Unit returns the refclock unit this segment serves.
func (s *Segment) Unit() int {
	return s.unit
}

// Update publishes one accepted pulse: real is the inferred true UTC
// instant, clock the host instant at capture. Follows the double-count
// write protocol so readers can detect torn reads.
func (s *Segment) Update(real, clock timespec.Timespec) {
	t := s.t

	atomic.StoreInt32(&t.Valid, 0)
	atomic.AddInt32(&t.Count, 1)

	t.ClockTimeStampSec = real.Sec
	t.ClockTimeStampUSec = int32(real.Nsec / 1000)
	t.ClockTimeStampNSec = uint32(real.Nsec)
	t.ReceiveTimeStampSec = clock.Sec
	t.ReceiveTimeStampUSec = int32(clock.Nsec / 1000)
	t.ReceiveTimeStampNSec = uint32(clock.Nsec)
	t.Leap = LeapNoWarning

	atomic.AddInt32(&t.Count, 1)
	atomic.StoreInt32(&t.Valid, 1)
}

// Close detaches the segment. The segment itself persists for the
// reader; only this mapping goes away.
func (s *Segment) Close() error {
	if s.detach == nil {
		return nil
	}
	return s.detach()
}

// initSegment prepares a freshly attached segment for mode-1 readers.
// PPS-conditioned time is good to about a microsecond here; precision is
// a power of two in seconds.
func initSegment(t *shmTime, unit int, detach func() error) *Segment {
	t.Mode = 1
	t.Precision = -20
	t.Nsamples = 3
	atomic.StoreInt32(&t.Valid, 0)
	return &Segment{t: t, unit: unit, detach: detach}
}
