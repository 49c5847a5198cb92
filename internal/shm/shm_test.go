package shm

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/maximewewer/pps-monitor/pkg/timespec"
)

// The struct must match the layout ntpd compiled in; a drifted offset
// silently corrupts the reader's view.
func TestShmTimeLayout(t *testing.T) {
	var st shmTime

	assert.Equal(t, uintptr(shmTimeSize), unsafe.Sizeof(st))
	assert.Equal(t, uintptr(0), unsafe.Offsetof(st.Mode))
	assert.Equal(t, uintptr(4), unsafe.Offsetof(st.Count))
	assert.Equal(t, uintptr(8), unsafe.Offsetof(st.ClockTimeStampSec))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(st.ClockTimeStampUSec))
	assert.Equal(t, uintptr(24), unsafe.Offsetof(st.ReceiveTimeStampSec))
	assert.Equal(t, uintptr(32), unsafe.Offsetof(st.ReceiveTimeStampUSec))
	assert.Equal(t, uintptr(36), unsafe.Offsetof(st.Leap))
	assert.Equal(t, uintptr(40), unsafe.Offsetof(st.Precision))
	assert.Equal(t, uintptr(44), unsafe.Offsetof(st.Nsamples))
	assert.Equal(t, uintptr(48), unsafe.Offsetof(st.Valid))
	assert.Equal(t, uintptr(52), unsafe.Offsetof(st.ClockTimeStampNSec))
	assert.Equal(t, uintptr(56), unsafe.Offsetof(st.ReceiveTimeStampNSec))
	assert.Equal(t, uintptr(60), unsafe.Offsetof(st.Dummy))
}

func newTestSegment(unit int) (*Segment, *shmTime) {
	t := &shmTime{}
	return initSegment(t, unit, nil), t
}

func TestInitSegment(t *testing.T) {
	seg, st := newTestSegment(2)

	assert.Equal(t, 2, seg.Unit())
	assert.Equal(t, int32(1), st.Mode)
	assert.Equal(t, int32(-20), st.Precision)
	assert.Equal(t, int32(3), st.Nsamples)
	assert.Equal(t, int32(0), st.Valid)
}

func TestUpdateWriteProtocol(t *testing.T) {
	seg, st := newTestSegment(2)

	real := timespec.Timespec{Sec: 1_700_000_001, Nsec: 0}
	clock := timespec.Timespec{Sec: 1_700_000_001, Nsec: 123_456_789}

	seg.Update(real, clock)

	assert.Equal(t, int32(1), st.Valid)
	// the double-count protocol bumps count twice per write
	assert.Equal(t, int32(2), st.Count)

	assert.Equal(t, int64(1_700_000_001), st.ClockTimeStampSec)
	assert.Equal(t, int32(0), st.ClockTimeStampUSec)
	assert.Equal(t, uint32(0), st.ClockTimeStampNSec)
	assert.Equal(t, int64(1_700_000_001), st.ReceiveTimeStampSec)
	assert.Equal(t, int32(123_456), st.ReceiveTimeStampUSec)
	assert.Equal(t, uint32(123_456_789), st.ReceiveTimeStampNSec)
	assert.Equal(t, int32(LeapNoWarning), st.Leap)

	seg.Update(real, clock)
	assert.Equal(t, int32(4), st.Count)
}

func TestCloseWithoutAttach(t *testing.T) {
	seg, _ := newTestSegment(0)
	assert.NoError(t, seg.Close())
}
