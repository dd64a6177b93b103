package mam

import (
	"testing"

	"github.com/RoseOO/ltfsgo/internal/scsi"
)

type fakeIssuer struct {
	handler func(cdb []byte, dir scsi.DataDirection, data, sense []byte) (bool, error)
}

func (f *fakeIssuer) Issue(cdb []byte, dir scsi.DataDirection, data []byte, sense []byte) (bool, error) {
	return f.handler(cdb, dir, data, sense)
}

func TestIdentifyMediaDecodesLTO6RW(t *testing.T) {
	fake := &fakeIssuer{handler: func(cdb []byte, dir scsi.DataDirection, data, sense []byte) (bool, error) {
		data[8] = 0x5a // LTO-6 RW media code, low byte
		return true, nil
	}}

	info, err := IdentifyMedia(fake)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Generation != "LTO-6" {
		t.Fatalf("expected LTO-6, got %q", info.Generation)
	}
	if info.IsWORM {
		t.Fatalf("expected RW variant, not WORM")
	}
}

func TestIdentifyMediaFoldsInWORMBitFromByte3(t *testing.T) {
	fake := &fakeIssuer{handler: func(cdb []byte, dir scsi.DataDirection, data, sense []byte) (bool, error) {
		data[8] = 0x5a // LTO-6 base code
		data[3] = 0x80 // extension bit clear on data[18], so this bit folds in
		return true, nil
	}}

	info, err := IdentifyMedia(fake)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Generation != "LTO-6" {
		t.Fatalf("expected LTO-6, got %q", info.Generation)
	}
	if !info.IsWORM {
		t.Fatalf("expected WORM flag set via folded-in bit, got media code %#x", info.MediaCode)
	}
}

func TestIdentifyMediaUsesExtensionBitWhenSet(t *testing.T) {
	fake := &fakeIssuer{handler: func(cdb []byte, dir scsi.DataDirection, data, sense []byte) (bool, error) {
		data[8] = 0x5a  // LTO-6 base code
		data[18] = 0x01 // extension bit set: media_code bit 8 is set, signaling WORM directly
		data[3] = 0x80  // must not additionally fold in, since bit 8 is already set
		return true, nil
	}}

	info, err := IdentifyMedia(fake)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.MediaCode&0x100 == 0 {
		t.Fatalf("expected extension bit preserved in media code, got %#x", info.MediaCode)
	}
	if info.MediaCode&0x200 != 0 {
		t.Fatalf("data[3] fold-in must not apply once the extension bit is set, got %#x", info.MediaCode)
	}
	if !info.IsWORM {
		t.Fatalf("expected WORM reported via the extension bit")
	}
}

func TestReadAttributeStripsHeader(t *testing.T) {
	fake := &fakeIssuer{handler: func(cdb []byte, dir scsi.DataDirection, data, sense []byte) (bool, error) {
		data[7] = 0x00
		data[8] = 0x08 // attribute length = 8
		copy(data[9:17], []byte{0, 0, 0, 0, 0, 0, 0, 42})
		return true, nil
	}}

	value, err := ReadAttribute(fake, 0, AttrMaximumCapacity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(value) != 8 || value[7] != 42 {
		t.Fatalf("unexpected attribute value: %v", value)
	}
}
