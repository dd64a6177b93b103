// Package scsi implements raw SCSI generic (sg/st) pass-through tape access
// on Linux: device handling, CDB issue via the SG_IO ioctl, sense decoding,
// positioning, and block/file-mark I/O. It has no dependency on mt, dd, or
// any other external tool — every operation in this package talks to the
// device node directly.
package scsi

import (
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/RoseOO/ltfsgo/internal/scsierr"
)

// DriveType selects the CDB variant a Positioner builds for LOCATE and the
// retry ladder it uses on a failed positioning command.
type DriveType int

const (
	// Standard covers most modern LTO drives: LOCATE(16) primary, with a
	// LOCATE(10) retry on failure.
	Standard DriveType = iota
	// SLR3 drives accept only LOCATE(10) with a drive-specific CDB layout.
	SLR3
	// SLR1 drives accept only a six-byte vendor LOCATE (opcode 0x0C) with a
	// 20-bit block address, no partition support.
	SLR1
	// M2488 drives have no vendor CDB of their own and use the Standard
	// LOCATE path.
	M2488
)

func (d DriveType) String() string {
	switch d {
	case Standard:
		return "standard"
	case SLR3:
		return "slr3"
	case SLR1:
		return "slr1"
	case M2488:
		return "m2488"
	default:
		return "unknown"
	}
}

// Device is an open tape device node (/dev/st*, /dev/nst*, /dev/sg*)
// accessed through the Linux SCSI generic ioctl interface.
type Device struct {
	path string
	f    *os.File
}

// Open opens path exclusively and returns a Device ready to Issue commands.
// The open is advisory-locked with flock(LOCK_EX|LOCK_NB): Linux tape
// drivers do not offer a share-mode open argument, so exclusivity is
// enforced the same way any other single-owner device node would be. A
// bare device name without a slash, such as "nst0", is resolved under /dev.
func Open(path string) (*Device, error) {
	if !strings.Contains(path, "/") {
		path = "/dev/" + path
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsPermission(err) {
			return nil, scsierr.Wrapf(scsierr.Permission, err, "open %s", path)
		}
		return nil, scsierr.Wrapf(scsierr.Io, err, "open %s", path)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, scsierr.Wrapf(scsierr.TapeDevice, err, "device %s is in use", path)
	}

	return &Device{path: path, f: f}, nil
}

// Close releases the device. It is safe to call more than once.
func (d *Device) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	if err != nil {
		return scsierr.Wrapf(scsierr.Io, err, "close %s", d.path)
	}
	return nil
}

// Path returns the device node this Device was opened from.
func (d *Device) Path() string { return d.path }

// commandTimeout reproduces the per-opcode timeout table: Test-Unit-Ready
// and the short status/log/position commands get 30s; READ(6) scales with
// the transfer size so a full 256-block chunk at the default block size
// does not time out on a slow drive; WRITE, LOCATE, SPACE, and FORMAT get a
// flat 600s since those can legitimately run long (a full-tape SPACE or a
// large WRITE must not be aborted mid-transfer).
func commandTimeout(opcode byte, dataLen int) time.Duration {
	switch opcode {
	case opTestUnitReady, opMODESENSE6, opMODESENSE10, opLOGSENSE, opREADPOSITION, opREADATTRIBUTE:
		return 30 * time.Second
	case opREAD6:
		secs := (dataLen + 65535) / 65536 * 60
		if secs < 300 {
			secs = 300
		}
		return time.Duration(secs) * time.Second
	case opWRITE6, opLOCATE10, opLOCATE16, opSPACE6, opLOADUNLOAD, opFORMATUNIT:
		return 600 * time.Second
	default:
		return 60 * time.Second
	}
}

