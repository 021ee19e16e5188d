//go:build linux

package device

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The hidraw ioctl surface (spec §6): HIDIOCGRAWINFO reads back vendor
// and product IDs, HIDIOCGRDESCSIZE/HIDIOCGRDESC fetch the report
// descriptor, HIDIOCSFEATURE writes a feature report. Linux does not
// expose these as named syscalls; they are computed the same way
// <linux/hidraw.h> computes them, via the standard ioctl _IOC macro.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14
	iocDirBits  = 2

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	hidrawIOCType = 'H'
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNrShift) | (size << iocSizeShift)
}

func iorSized(typ, nr byte, size uintptr) uintptr {
	return ioc(iocRead, uintptr(typ), uintptr(nr), size)
}

func iowrSized(typ, nr byte, size uintptr) uintptr {
	return ioc(iocWrite|iocRead, uintptr(typ), uintptr(nr), size)
}

type hidrawDevinfo struct {
	Bustype uint32
	Vendor  int16
	Product int16
}

const maxDescriptorSize = 4096

type hidrawReportDescriptor struct {
	Size  uint32
	Value [maxDescriptorSize]byte
}

var (
	hidiocgrdescsize = iorSized(hidrawIOCType, 0x01, unsafe.Sizeof(int32(0)))
	hidiocgrdesc      = iorSized(hidrawIOCType, 0x02, unsafe.Sizeof(hidrawReportDescriptor{}))
	hidiocgrawinfo    = iorSized(hidrawIOCType, 0x03, unsafe.Sizeof(hidrawDevinfo{}))
)

func hidiocsfeature(size uintptr) uintptr { return iowrSized(hidrawIOCType, 0x06, size) }

func ioctlPtr(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// hidrawPort is the Linux HidPort implementation. Spec §4.2 open() asks
// for "one [channel] for non-blocking writes and one for reads" on the
// same device, so the node is opened twice: writeFd is O_NONBLOCK (torque
// writes and feature-report ioctls must never block the RT thread),
// readFd is a plain blocking descriptor for read_telemetry.
type hidrawPort struct {
	writeFd  int
	readFd   int
	writable bool
}

// openHidraw opens path for reading, additionally for writing when
// permitted, falling back to read-only if write access is denied (spec
// §4.2 open()'s "tolerate missing write permission").
func openHidraw(path string) (*hidrawPort, bool, error) {
	readFd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, false, fmt.Errorf("device: open %s: %w", path, err)
	}

	writeFd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return &hidrawPort{writeFd: -1, readFd: readFd, writable: false}, false, nil
	}
	return &hidrawPort{writeFd: writeFd, readFd: readFd, writable: true}, true, nil
}

// infoFd is whichever descriptor is open; ioctls that only read device
// metadata (HIDIOCGRAWINFO, HIDIOCGRDESC*) work on either.
func (p *hidrawPort) infoFd() int {
	if p.writeFd >= 0 {
		return p.writeFd
	}
	return p.readFd
}

func (p *hidrawPort) rawInfo() (vendor, product uint16, err error) {
	var info hidrawDevinfo
	if err := ioctlPtr(p.infoFd(), hidiocgrawinfo, unsafe.Pointer(&info)); err != nil {
		return 0, 0, fmt.Errorf("device: HIDIOCGRAWINFO: %w", err)
	}
	return uint16(info.Vendor), uint16(info.Product), nil
}

func (p *hidrawPort) descriptor() ([]byte, error) {
	var size int32
	if err := ioctlPtr(p.infoFd(), hidiocgrdescsize, unsafe.Pointer(&size)); err != nil {
		return nil, fmt.Errorf("device: HIDIOCGRDESCSIZE: %w", err)
	}
	var desc hidrawReportDescriptor
	desc.Size = uint32(size)
	if err := ioctlPtr(p.infoFd(), hidiocgrdesc, unsafe.Pointer(&desc)); err != nil {
		return nil, fmt.Errorf("device: HIDIOCGRDESC: %w", err)
	}
	out := make([]byte, size)
	copy(out, desc.Value[:size])
	return out, nil
}

func (p *hidrawPort) WriteOutputReport(report []byte) (int, error) {
	if p.writeFd < 0 {
		return 0, ErrWriteNotPermitted
	}
	return unix.Write(p.writeFd, report)
}

func (p *hidrawPort) WriteFeatureReport(report []byte) error {
	if p.writeFd < 0 {
		return ErrWriteNotPermitted
	}
	if len(report) > maxFeatureReportBytes {
		return fmt.Errorf("device: feature report too large (%d bytes)", len(report))
	}
	buf := make([]byte, len(report))
	copy(buf, report)
	req := hidiocsfeature(uintptr(len(buf)))
	if err := ioctlPtr(p.writeFd, req, unsafe.Pointer(&buf[0])); err != nil {
		return fmt.Errorf("device: HIDIOCSFEATURE: %w", err)
	}
	return nil
}

func (p *hidrawPort) ReadInputReport(buf []byte) (int, error) {
	return unix.Read(p.readFd, buf)
}

func (p *hidrawPort) Close() error {
	if p.writeFd >= 0 {
		_ = unix.Close(p.writeFd)
	}
	return unix.Close(p.readFd)
}
