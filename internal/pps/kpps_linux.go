//go:build linux
// +build linux

package pps

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/maximewewer/pps-monitor/pkg/logger"
	"github.com/maximewewer/pps-monitor/pkg/timespec"
)

// Linux PPS API (include/uapi/linux/pps.h). The ioctl numbers encode the
// struct sizes below; the structs must match the kernel layout exactly.
//
//	PPS_GETPARAMS = _IOR('p', 0xa1, struct pps_kparams)  // 40 bytes
//	PPS_SETPARAMS = _IOW('p', 0xa2, struct pps_kparams)
//	PPS_GETCAP    = _IOR('p', 0xa3, int)
//	PPS_FETCH     = _IOWR('p', 0xa4, struct pps_fdata)   // 64 bytes
const (
	ppsGetParams = 0x802870a1
	ppsSetParams = 0x402870a2
	ppsGetCap    = 0x800470a3
	ppsFetch     = 0xc04070a4

	ppsCaptureAssert = 0x01
	ppsCaptureClear  = 0x02
	ppsCaptureBoth   = 0x03
	ppsTsFmtTspec    = 0x1000

	// the PPS line discipline; attaching it creates the /dev/ppsN
	// side-channel device
	ppsLineDiscipline = 18
)

// ppsKTime mirrors struct pps_ktime.
type ppsKTime struct {
	Sec   int64
	Nsec  int32
	Flags uint32
}

// ppsKInfo mirrors struct pps_kinfo (48 bytes with trailing padding).
type ppsKInfo struct {
	AssertSequence uint32
	ClearSequence  uint32
	AssertTu       ppsKTime
	ClearTu        ppsKTime
	CurrentMode    int32
	_              [4]byte
}

// ppsKParams mirrors struct pps_kparams.
type ppsKParams struct {
	APIVersion  int32
	Mode        int32
	AssertOffTu ppsKTime
	ClearOffTu  ppsKTime
}

// ppsFData mirrors struct pps_fdata.
type ppsFData struct {
	Info    ppsKInfo
	Timeout ppsKTime
}

// kernelPPS is the Linux RFC2783 capture adapter. The handle is the open
// /dev/ppsN descriptor; it stays valid across a privilege drop.
type kernelPPS struct {
	fd     int
	device string
}

// sysfs directory whose ppsN/path attributes associate pps devices with
// their serial ports. RFC2783 neglects to specify this association;
// /sys/class/pps is a symlink to the same nodes.
const sysfsPPSGlob = "/sys/devices/virtual/pps/pps*/path"

// NewKernelPPS sets up RFC2783 kernel capture for the device. Returns
// ErrNotTerminal when the descriptor is not a tty (setup-fatal) and
// ErrKernelUnsupported wrapped with detail for every recoverable setup
// failure (caller falls back to the user-space path).
//
// On Linux the setup requires root: attaching the PPS line discipline and
// opening the /dev/ppsN node are both privileged.
func NewKernelPPS(fd int, device string) (KernelPPS, error) {
	if _, err := unix.IoctlGetTermios(fd, unix.TCGETS); err != nil {
		return nil, fmt.Errorf("KPPS %s: %w", device, ErrNotTerminal)
	}

	path := ""
	if strings.HasPrefix(device, "/dev/pps") {
		// Some systems, like the Raspberry Pi, have preexisting PPS
		// devices; an explicit path skips discovery.
		path = device
	} else {
		// Attach the PPS line discipline so no ldattach is needed. This
		// activates the /dev/ppsN device and requires root.
		if err := unix.IoctlSetPointerInt(fd, unix.TIOCSETD, ppsLineDiscipline); err != nil {
			return nil, fmt.Errorf("%w: cannot set PPS line discipline on %s: %v",
				ErrKernelUnsupported, device, err)
		}

		var err error
		path, err = findPPSDevice(device)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKernelUnsupported, err)
		}
	}

	if os.Geteuid() != 0 {
		return nil, fmt.Errorf("%w: opening %s requires root", ErrKernelUnsupported, path)
	}

	ppsFd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %v", ErrKernelUnsupported, path, err)
	}

	k := &kernelPPS{fd: ppsFd, device: device}

	// Capabilities are diagnostic only; a failed query is not fatal.
	if caps, err := k.getCap(); err != nil {
		logger.Error("kpps", "KPPS capability query on "+device+" failed", err)
	} else {
		logger.KPPS(device, "setup", map[string]interface{}{
			"pps_device": path,
			"caps":       fmt.Sprintf("%#x", caps),
		})
	}

	// Capture both edges. Linux rejects unsupported mode bits such as the
	// echo flags, so the mode stays minimal; the timestamp format flag is
	// only needed on other RFC2783 systems.
	params := ppsKParams{Mode: ppsCaptureBoth}
	if err := k.setParams(&params); err != nil {
		_ = unix.Close(ppsFd)
		return nil, fmt.Errorf("%w: set params on %s: %v", ErrKernelUnsupported, path, err)
	}

	return k, nil
}

// findPPSDevice scans the sysfs PPS nodes for the one whose path
// attribute names the serial device, and returns the matching /dev/ppsN.
func findPPSDevice(device string) (string, error) {
	matches, err := filepath.Glob(sysfsPPSGlob)
	if err != nil {
		return "", fmt.Errorf("sysfs scan failed: %v", err)
	}

	for _, attr := range matches {
		content, err := os.ReadFile(attr)
		if err != nil {
			continue
		}
		linked := strings.TrimRight(string(content), "\n")
		logger.KPPS(device, "probe", map[string]interface{}{
			"attr": attr,
			"path": linked,
		})
		if linked != device {
			continue
		}
		index, err := ppsIndexFromPath(attr)
		if err != nil {
			continue
		}
		return "/dev/pps" + strconv.Itoa(index), nil
	}

	return "", fmt.Errorf("no PPS device found for %s", device)
}

// ppsIndexFromPath extracts N from .../ppsN/path by parsing the pathname
// component, so it keeps working past ten devices and survives layout
// changes in the prefix.
func ppsIndexFromPath(attr string) (int, error) {
	name := filepath.Base(filepath.Dir(attr))
	idx := strings.TrimPrefix(name, "pps")
	if idx == name {
		return 0, fmt.Errorf("unexpected sysfs node %q", attr)
	}
	return strconv.Atoi(idx)
}

func (k *kernelPPS) getCap() (int, error) {
	var caps int32
	if err := ppsIoctl(k.fd, ppsGetCap, unsafe.Pointer(&caps)); err != nil {
		return 0, err
	}
	return int(caps), nil
}

func (k *kernelPPS) setParams(p *ppsKParams) error {
	return ppsIoctl(k.fd, ppsSetParams, unsafe.Pointer(p))
}

// Fetch returns the most recent assert and clear timestamps. A zero
// timeout struct means "return immediately" (RFC2783 §3.4.3) and is used
// right after a wakeup, when the kernel has already captured the edge and
// this call merely collects it. Otherwise block up to one second.
func (k *kernelPPS) Fetch(poll bool) (assert, clear timespec.Timespec, err error) {
	var data ppsFData
	if !poll {
		data.Timeout.Sec = 1
	}
	if err := ppsIoctl(k.fd, ppsFetch, unsafe.Pointer(&data)); err != nil {
		return timespec.Timespec{}, timespec.Timespec{}, fmt.Errorf("PPS_FETCH on %s: %w", k.device, err)
	}
	assert = timespec.Timespec{Sec: data.Info.AssertTu.Sec, Nsec: int64(data.Info.AssertTu.Nsec)}
	clear = timespec.Timespec{Sec: data.Info.ClearTu.Sec, Nsec: int64(data.Info.ClearTu.Nsec)}
	return assert, clear, nil
}

// Close destroys the capture handle.
func (k *kernelPPS) Close() error {
	return unix.Close(k.fd)
}

func ppsIoctl(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
