// Package mam implements media identification and Medium Auxiliary Memory
// attribute access: MODE SENSE page 0x1D for density/media code, and READ
// ATTRIBUTE / WRITE ATTRIBUTE (opcodes 0x8C/0x8D) for MAM attributes such as
// the volume's remaining-capacity hint.
package mam

import (
	"fmt"

	"github.com/RoseOO/ltfsgo/internal/media"
	"github.com/RoseOO/ltfsgo/internal/scsi"
	"github.com/RoseOO/ltfsgo/internal/scsierr"
)

const (
	opModeSense6     = 0x1A
	opReadAttribute  = 0x8C
	opWriteAttribute = 0x8D

	modePageMediumConfig = 0x1D
)

// MediaInfo identifies the cartridge currently loaded in the drive.
type MediaInfo struct {
	MediaCode  int
	Generation string
	IsWORM     bool
	MediumType byte
}

// Issuer is the subset of scsi.Issuer this package needs.
type Issuer = scsi.Issuer

// IdentifyMedia first issues READ POSITION, so an empty drive fails here
// with a TapeDevice error, then reads MODE SENSE page 0x1D and decodes the
// media_code field using the WORM-bit fold-in formula: the low byte (data[8]) selects
// the LTO generation via the same density-code table INQUIRY uses, and an
// extension bit signals WORM — normally bit 8 from data[18]'s low bit, or,
// when that bit is clear, bit 7 of data[3] folded into bit 9 instead (some
// drives only ever report the WORM indicator in that legacy location).
func IdentifyMedia(issuer Issuer) (MediaInfo, error) {
	if _, err := scsi.NewPositioner(issuer, scsi.Standard).ReadPosition(); err != nil {
		return MediaInfo{}, scsierr.Wrap(scsierr.TapeDevice, err, "read position before media identification")
	}

	cdb := make([]byte, 6)
	cdb[0] = opModeSense6
	cdb[2] = modePageMediumConfig & 0x3F
	cdb[4] = 64

	data := make([]byte, 64)
	sense := make([]byte, 64)
	completed, err := issuer.Issue(cdb, scsi.DirFromDevice, data, sense)
	if err != nil {
		return MediaInfo{}, scsierr.Wrap(scsierr.Io, err, "mode sense page 0x1D")
	}
	if !completed {
		info := scsi.DecodeSense(sense)
		return MediaInfo{}, scsierr.Newf(scsierr.Scsi, "mode sense page 0x1D failed: %s", info)
	}
	if len(data) < 19 {
		return MediaInfo{}, scsierr.New(scsierr.Scsi, "mode sense page 0x1D: short response")
	}

	mediaCode := int(data[8]) | (int(data[18]&0x01) << 8)
	if mediaCode&0x100 == 0 {
		mediaCode |= int(data[3]&0x80) << 2
	}

	densityCode := fmt.Sprintf("0x%02x", mediaCode&0xFF)
	gen, _ := media.GenerationFromDensity(densityCode)
	isWORM := mediaCode&0x300 != 0

	return MediaInfo{
		MediaCode:  mediaCode,
		Generation: gen,
		IsWORM:     isWORM,
		MediumType: data[2],
	}, nil
}

// Attribute identifiers used by this engine's capacity fallback chain.
const (
	AttrRemainingCapacity = 0x0000
	AttrMaximumCapacity   = 0x0001
	AttrMediumSerial      = 0x0401
)

// ReadAttribute issues READ ATTRIBUTE for a single attribute identifier and
// returns its raw value bytes (the attribute header is stripped).
func ReadAttribute(issuer Issuer, partition byte, attributeID uint16) ([]byte, error) {
	cdb := make([]byte, 16)
	cdb[0] = opReadAttribute
	cdb[1] = 0x00 // service action: VALUES
	cdb[7] = partition
	cdb[8] = byte(attributeID >> 8)
	cdb[9] = byte(attributeID)

	data := make([]byte, 64)
	cdb[13] = byte(len(data) >> 8)
	cdb[14] = byte(len(data))

	sense := make([]byte, 64)
	completed, err := issuer.Issue(cdb, scsi.DirFromDevice, data, sense)
	if err != nil {
		return nil, scsierr.Wrap(scsierr.Io, err, "read attribute")
	}
	if !completed {
		info := scsi.DecodeSense(sense)
		return nil, scsierr.Newf(scsierr.Scsi, "read attribute %#04x failed: %s", attributeID, info)
	}
	if len(data) < 9 {
		return nil, scsierr.New(scsierr.Scsi, "read attribute: short response")
	}

	avLength := int(data[7])<<8 | int(data[8])
	headerLen := 9
	if headerLen+avLength > len(data) {
		avLength = len(data) - headerLen
	}
	return data[headerLen : headerLen+avLength], nil
}

// WriteAttribute issues WRITE ATTRIBUTE for a single attribute identifier
// carrying value as its attribute value bytes.
func WriteAttribute(issuer Issuer, partition byte, attributeID uint16, value []byte) error {
	header := make([]byte, 9+len(value))
	header[4] = byte(attributeID >> 8)
	header[5] = byte(attributeID)
	header[6] = 0x00 // format: binary
	header[7] = byte(len(value) >> 8)
	header[8] = byte(len(value))
	copy(header[9:], value)

	cdb := make([]byte, 16)
	cdb[0] = opWriteAttribute
	cdb[7] = partition
	cdb[10] = byte(len(header) >> 24)
	cdb[11] = byte(len(header) >> 16)
	cdb[12] = byte(len(header) >> 8)
	cdb[13] = byte(len(header))

	sense := make([]byte, 64)
	completed, err := issuer.Issue(cdb, scsi.DirToDevice, header, sense)
	if err != nil {
		return scsierr.Wrap(scsierr.Io, err, "write attribute")
	}
	if !completed {
		info := scsi.DecodeSense(sense)
		return scsierr.Newf(scsierr.Scsi, "write attribute %#04x failed: %s", attributeID, info)
	}
	return nil
}
