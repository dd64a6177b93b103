// Package locator implements the LTFS index search protocol: the ordered
// set of strategies used to find a readable index copy on a cartridge
// before falling back to the next one.
package locator

import (
	"strings"

	"github.com/RoseOO/ltfsgo/internal/scsi"
	"github.com/RoseOO/ltfsgo/internal/scsierr"
)

// standardLocations is the final, fixed sweep of index-partition block
// numbers tried as a last resort. Block 6 is kept for compatibility with
// cartridges written by older tools even though current writers never
// place an index there.
var standardLocations = []uint64{6, 5, 2, 0}

// Locator finds and reads raw index XML text off a cartridge, without
// itself parsing or validating that text.
type Locator struct {
	pos    *scsi.Positioner
	blocks *scsi.BlockIO
}

// New creates a Locator bound to a positioner and block reader sharing the
// same underlying device.
func New(pos *scsi.Positioner, blocks *scsi.BlockIO) *Locator {
	return &Locator{pos: pos, blocks: blocks}
}

// ReadDualPartition reads the index from partition 0 using the FileMark-3
// convention: index writers always place the first full index copy right
// after the third file mark in the index partition. ReadFileMark is the
// skip-current-mark probe (§4.6): if the probe read returns data instead of
// a file mark, it backs the tape up one block via LOCATE(16) so
// readToMarkAsText starts from the index content rather than one block too
// far forward.
func (l *Locator) ReadDualPartition() (string, error) {
	if err := l.pos.LocateToFileMark(3, 0); err != nil {
		return "", scsierr.Wrap(scsierr.TapeDevice, err, "locate index partition FileMark 3")
	}
	if _, err := l.pos.ReadFileMark(l.blocks, true); err != nil {
		return "", scsierr.Wrap(scsierr.TapeDevice, err, "read file mark at index partition FileMark 3")
	}
	return l.readToMarkAsText()
}

// ReadSinglePartitionEOD reads the latest index from a single-partition
// cartridge: locate end-of-data, then step back one file mark (the final
// index copy always immediately precedes EOD).
func (l *Locator) ReadSinglePartitionEOD() (string, error) {
	return l.readLatestFromEOD(0)
}

// ReadSinglePartitionFallback is the single-partition locator's last
// resort, used when EOD reports too few file marks for readLatestFromEOD
// to trust: back up two file marks from wherever the tape currently sits,
// skip the current mark, and read to the next one.
func (l *Locator) ReadSinglePartitionFallback() (string, error) {
	if err := l.pos.Space(scsi.SpaceFileMarks, -2); err != nil {
		return "", scsierr.Wrap(scsierr.TapeDevice, err, "space back 2 file marks")
	}
	if _, err := l.pos.ReadFileMark(l.blocks, true); err != nil {
		return "", scsierr.Wrap(scsierr.TapeDevice, err, "read file mark before fallback read")
	}
	return l.readToMarkAsText()
}

// ReadDataPartitionEOD reads the latest index from the data partition of a
// dual-partition cartridge, using the same FM-1 convention as the
// single-partition case.
func (l *Locator) ReadDataPartitionEOD() (string, error) {
	return l.readLatestFromEOD(1)
}

// readLatestFromEOD locates to a partition's end-of-data, validates it has
// enough file marks to contain an index, then backs up to FileNumber-1 (the
// newest index copy always sits just before the final file mark).
func (l *Locator) readLatestFromEOD(partition byte) (string, error) {
	if err := l.pos.Locate(scsi.DestBlock, 0, partition); err != nil {
		return "", scsierr.Wrapf(scsierr.TapeDevice, err, "locate partition %d block 0", partition)
	}
	if err := l.pos.LocateToEOD(partition); err != nil {
		return "", scsierr.Wrapf(scsierr.TapeDevice, err, "locate to EOD in partition %d", partition)
	}

	eod, err := l.pos.ReadPosition()
	if err != nil {
		return "", scsierr.Wrap(scsierr.TapeDevice, err, "read position at EOD")
	}
	if eod.FileNumber <= 1 {
		return "", scsierr.Newf(scsierr.TapeDevice, "insufficient file marks in partition %d for index reading", partition)
	}

	targetMark := eod.FileNumber - 1

	if err := l.pos.LocateToFileMark(targetMark, partition); err != nil {
		return "", scsierr.Wrapf(scsierr.TapeDevice, err, "locate to FileMark %d in partition %d", targetMark, partition)
	}
	if err := l.pos.Space(scsi.SpaceFileMarks, 1); err != nil {
		return "", scsierr.Wrap(scsierr.TapeDevice, err, "skip target file mark")
	}

	text, err := l.readToMarkAsText()
	if err != nil {
		return "", err
	}
	if !strings.Contains(text, "<ltfsindex") || !strings.Contains(text, "</ltfsindex>") {
		return "", scsierr.New(scsierr.Parse, "content at EOD file mark is not a valid LTFS index")
	}
	return text, nil
}

// SweepStandardLocations tries each of the fixed index-partition block
// numbers in order, reading a file-mark-delimited block at each, returning
// the first one that looks like valid LTFS index text.
func (l *Locator) SweepStandardLocations() (string, error) {
	var lastErr error
	for _, block := range standardLocations {
		if err := l.pos.Locate(scsi.DestBlock, block, 0); err != nil {
			lastErr = err
			continue
		}
		text, err := l.readToMarkAsText()
		if err != nil {
			lastErr = err
			continue
		}
		if strings.Contains(text, "<ltfsindex") && strings.Contains(text, "</ltfsindex>") {
			return text, nil
		}
	}
	if lastErr == nil {
		lastErr = scsierr.New(scsierr.TapeDevice, "no standard location produced valid index content")
	}
	return "", scsierr.Wrap(scsierr.TapeDevice, lastErr, "standard location sweep exhausted")
}

func (l *Locator) readToMarkAsText() (string, error) {
	raw, err := l.blocks.ReadToFileMark()
	if err != nil {
		return "", err
	}
	return NormalizeSchemaText(raw)
}

// NormalizeSchemaText reproduces the compatibility transform applied to
// raw schema text pulled off the data partition before it is handed to the
// XML parser: strip NUL padding, drop the non-standard <_directory>/<_file>
// wrapper tags some writers emit, undo their '%' escaping, and confirm the
// result still looks like LTFS content.
func NormalizeSchemaText(raw []byte) (string, error) {
	s := strings.ReplaceAll(string(raw), "\x00", "")
	s = strings.TrimSpace(s)

	if len(s) < 20 {
		return "", scsierr.Newf(scsierr.Parse, "schema text too short after null removal: %d bytes", len(s))
	}

	s = strings.ReplaceAll(s, "<_directory>", "")
	s = strings.ReplaceAll(s, "</_directory>", "")
	s = strings.ReplaceAll(s, "<_file>", "")
	s = strings.ReplaceAll(s, "</_file>", "")
	s = strings.ReplaceAll(s, "%25", "%")

	if !strings.Contains(s, "ltfsindex") && !strings.Contains(s, "directory") && !strings.Contains(s, "file") {
		return "", scsierr.Newf(scsierr.Parse, "no LTFS structure found in %d bytes of processed text", len(s))
	}

	return s, nil
}
