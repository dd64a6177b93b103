package scsi

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/RoseOO/ltfsgo/internal/scsierr"
)

// Data transfer directions for the SG_IO ioctl, matching <scsi/sg.h>.
const (
	dxferNone       = -1
	dxferToDevice   = -2
	dxferFromDevice = -3
)

const (
	sgIO        = 0x2285
	sgInfoOKMsk = 0x1
	sgInfoOK    = 0x0
)

// sgIoHdr mirrors sg_io_hdr_t from <scsi/sg.h>. Field order and widths must
// match the kernel ABI exactly.
type sgIoHdr struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         uintptr
	cmdp           uintptr
	sbp            uintptr
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         uintptr
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

// DataDirection describes which way data flows for an Issue call.
type DataDirection int

const (
	DirNone DataDirection = iota
	DirToDevice
	DirFromDevice
)

// Issuer abstracts SG_IO command issue so the rest of this package, and its
// callers' tests, can run against a fake backend instead of a real drive.
type Issuer interface {
	// Issue sends cdb, transferring data in the given direction, and
	// writes drive sense data into sense (truncated to its capacity).
	// completed is true only when the command finished with SCSI GOOD
	// status; any other outcome returns completed=false with sense
	// populated for the caller to decode. err is non-nil only for
	// transport-level failures (ioctl error, closed device).
	Issue(cdb []byte, dir DataDirection, data []byte, sense []byte) (completed bool, err error)
}

// Issue implements Issuer by performing the SG_IO ioctl directly against
// the open device node.
func (d *Device) Issue(cdb []byte, dir DataDirection, data []byte, sense []byte) (bool, error) {
	if d.f == nil {
		return false, scsierr.New(scsierr.Io, "device is closed")
	}

	var sgDir int32
	switch dir {
	case DirNone:
		sgDir = dxferNone
	case DirToDevice:
		sgDir = dxferToDevice
	case DirFromDevice:
		sgDir = dxferFromDevice
	default:
		return false, scsierr.Newf(scsierr.Io, "unknown data direction %d", dir)
	}

	hdr := sgIoHdr{
		interfaceID:    'S',
		dxferDirection: sgDir,
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        uint8(len(sense)),
		timeout:        uint32(commandTimeout(cdb[0], len(data)).Milliseconds()),
		cmdp:           uintptr(unsafe.Pointer(&cdb[0])),
	}
	if len(data) > 0 {
		hdr.dxferLen = uint32(len(data))
		hdr.dxferp = uintptr(unsafe.Pointer(&data[0]))
	}
	if len(sense) > 0 {
		hdr.sbp = uintptr(unsafe.Pointer(&sense[0]))
	}

	if err := ioctl(d.f.Fd(), sgIO, uintptr(unsafe.Pointer(&hdr))); err != nil {
		return false, scsierr.Wrapf(scsierr.Io, err, "SG_IO ioctl (opcode %#02x)", cdb[0])
	}

	if hdr.info&sgInfoOKMsk != sgInfoOK {
		return false, nil
	}
	return true, nil
}

// ioctl is the single syscall this package depends on the kernel for. It is
// factored out so Device.Issue reads as plain SG_IO construction.
func ioctl(fd uintptr, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}
