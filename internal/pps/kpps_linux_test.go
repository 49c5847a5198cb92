//go:build linux
// +build linux

package pps

import (
	"testing"
	"unsafe"
)

// The kernel fills these structs through the ioctls; the sizes must
// match include/uapi/linux/pps.h exactly.
func TestPPSStructSizes(t *testing.T) {
	if s := unsafe.Sizeof(ppsKTime{}); s != 16 {
		t.Errorf("sizeof(pps_ktime) = %d, want 16", s)
	}
	if s := unsafe.Sizeof(ppsKInfo{}); s != 48 {
		t.Errorf("sizeof(pps_kinfo) = %d, want 48", s)
	}
	if s := unsafe.Sizeof(ppsKParams{}); s != 40 {
		t.Errorf("sizeof(pps_kparams) = %d, want 40", s)
	}
	if s := unsafe.Sizeof(ppsFData{}); s != 64 {
		t.Errorf("sizeof(pps_fdata) = %d, want 64", s)
	}
}

func TestPPSIndexFromPath(t *testing.T) {
	tests := []struct {
		name    string
		attr    string
		want    int
		wantErr bool
	}{
		{"pps0", "/sys/devices/virtual/pps/pps0/path", 0, false},
		{"pps3", "/sys/devices/virtual/pps/pps3/path", 3, false},
		{"two_digits", "/sys/devices/virtual/pps/pps12/path", 12, false},
		{"no_pps_prefix", "/sys/devices/virtual/pps/foo3/path", 0, true},
		{"not_a_number", "/sys/devices/virtual/pps/ppsX/path", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ppsIndexFromPath(tt.attr)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ppsIndexFromPath(%q) = %d, want error", tt.attr, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ppsIndexFromPath(%q) failed: %v", tt.attr, err)
			}
			if got != tt.want {
				t.Errorf("ppsIndexFromPath(%q) = %d, want %d", tt.attr, got, tt.want)
			}
		})
	}
}

// The ioctl request numbers encode direction, struct size, type and
// ordinal; recompute them from the struct sizes to catch layout drift.
func TestPPSIoctlNumbers(t *testing.T) {
	const (
		iocWrite = 1
		iocRead  = 2
	)
	ioc := func(dir, size, nr uintptr) uintptr {
		return dir<<30 | size<<16 | 'p'<<8 | nr
	}

	if got := ioc(iocRead, 40, 0xa1); got != ppsGetParams {
		t.Errorf("PPS_GETPARAMS = %#x, want %#x", ppsGetParams, got)
	}
	if got := ioc(iocWrite, 40, 0xa2); got != ppsSetParams {
		t.Errorf("PPS_SETPARAMS = %#x, want %#x", ppsSetParams, got)
	}
	if got := ioc(iocRead, 4, 0xa3); got != ppsGetCap {
		t.Errorf("PPS_GETCAP = %#x, want %#x", ppsGetCap, got)
	}
	if got := ioc(iocRead|iocWrite, 64, 0xa4); got != ppsFetch {
		t.Errorf("PPS_FETCH = %#x, want %#x", ppsFetch, got)
	}
}
