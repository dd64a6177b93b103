// Package session implements the per-cartridge orchestrator: opening a
// device, running the read-index/list/space-info verbs, and closing.
package session

import (
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/RoseOO/ltfsgo/internal/capacity"
	"github.com/RoseOO/ltfsgo/internal/locator"
	"github.com/RoseOO/ltfsgo/internal/logging"
	"github.com/RoseOO/ltfsgo/internal/ltfsindex"
	"github.com/RoseOO/ltfsgo/internal/scsi"
	"github.com/RoseOO/ltfsgo/internal/scsierr"
)

// DriveVariant parses a config drive-variant string into a scsi.DriveType.
func DriveVariant(s string) scsi.DriveType {
	switch strings.ToLower(s) {
	case "slr3":
		return scsi.SLR3
	case "slr1":
		return scsi.SLR1
	case "m2488":
		return scsi.M2488
	default:
		return scsi.Standard
	}
}

// Session is a single cartridge's opened device plus the components layered
// on top of it: positioning, block I/O, capacity, and the cached index once
// read.
type Session struct {
	device    *scsi.Device
	pos       *scsi.Positioner
	blocks    *scsi.BlockIO
	locator   *locator.Locator
	capacity  *capacity.Manager
	log       *logging.FieldLogger
	blockSize int

	extraPartitionCount int
	index               *ltfsindex.Index
}

// Open opens the device node at path and wires up the positioning,
// block-I/O, locator, and capacity layers for it.
func Open(path string, drive scsi.DriveType, blockSize int, extraPartitionCount int, log *logging.Logger) (*Session, error) {
	dev, err := scsi.Open(path)
	if err != nil {
		return nil, err
	}

	pos := scsi.NewPositioner(dev, drive)
	blocks := scsi.NewBlockIO(dev, pos, blockSize)

	var fl *logging.FieldLogger
	if log != nil {
		fl = log.WithFields(map[string]interface{}{"device": path})
	}

	return &Session{
		device:              dev,
		pos:                 pos,
		blocks:              blocks,
		locator:             locator.New(pos, blocks),
		capacity:            capacity.NewManager(dev),
		log:                 fl,
		blockSize:           blockSize,
		extraPartitionCount: extraPartitionCount,
	}, nil
}

// Close releases the underlying device.
func (s *Session) Close() error {
	return s.device.Close()
}

// ReadIndex locates and parses the cartridge's LTFS index, trying each
// strategy in priority order and caching the result on success.
func (s *Session) ReadIndex() (*ltfsindex.Index, error) {
	var candidates []func() (string, error)

	if s.extraPartitionCount > 0 {
		candidates = []func() (string, error){
			s.locator.ReadDualPartition,
			s.locator.ReadDataPartitionEOD,
			s.locator.SweepStandardLocations,
		}
	} else {
		candidates = []func() (string, error){
			s.locator.ReadSinglePartitionEOD,
			s.locator.ReadSinglePartitionFallback,
		}
	}

	var lastErr error
	for _, try := range candidates {
		text, err := try()
		if err != nil {
			lastErr = err
			s.logDebug("index candidate failed", map[string]interface{}{"error": err.Error()})
			continue
		}
		idx, err := ltfsindex.Parse(text)
		if err != nil {
			lastErr = err
			s.logDebug("index candidate parse failed", map[string]interface{}{"error": err.Error()})
			continue
		}
		s.index = idx
		s.logInfo("index loaded", map[string]interface{}{
			"generation": idx.GenerationNumber,
			"volumeuuid": idx.VolumeUUID,
		})
		return idx, nil
	}

	if lastErr == nil {
		lastErr = scsierr.New(scsierr.TapeDevice, "no index locator strategy available")
	}
	return nil, scsierr.Wrap(scsierr.Parse, lastErr, "read index: all strategies exhausted")
}

// List walks the cached index tree under path ("" or "/" for root) and
// returns the immediate entries (files and directories) found there.
func (s *Session) List(path string) ([]Entry, error) {
	if s.index == nil {
		return nil, scsierr.New(scsierr.Verification, "no index loaded: call ReadIndex first")
	}

	dir, err := findDirectory(&s.index.Root, splitPath(path))
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dir.Files)+len(dir.Directories))
	for _, f := range dir.Directories {
		entries = append(entries, Entry{Name: f.Name, IsDir: true})
	}
	for _, f := range dir.Files {
		entries = append(entries, Entry{Name: f.Name, IsDir: false, Size: f.Length})
	}
	return entries, nil
}

// Entry is one directory or file entry returned by List.
type Entry struct {
	Name  string
	IsDir bool
	Size  uint64
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func findDirectory(dir *ltfsindex.Directory, parts []string) (*ltfsindex.Directory, error) {
	if len(parts) == 0 {
		return dir, nil
	}
	for i := range dir.Directories {
		if dir.Directories[i].Name == parts[0] {
			return findDirectory(&dir.Directories[i], parts[1:])
		}
	}
	return nil, scsierr.Newf(scsierr.Verification, "directory %q not found", parts[0])
}

// SpaceReport is the human-readable output of the space-info verb.
type SpaceReport struct {
	Info            capacity.Info
	P0RemainingHuman string
	P0MaximumHuman   string
	P1RemainingHuman string
	P1MaximumHuman   string
}

// SpaceInfo refreshes and formats the cartridge's capacity report.
func (s *Session) SpaceInfo() (SpaceReport, error) {
	info, err := s.capacity.Refresh(s.extraPartitionCount)
	if err != nil {
		return SpaceReport{}, err
	}
	return SpaceReport{
		Info:             info,
		P0RemainingHuman: humanize.Bytes(info.P0RemainingKB * 1024),
		P0MaximumHuman:   humanize.Bytes(info.P0MaximumKB * 1024),
		P1RemainingHuman: humanize.Bytes(info.P1RemainingKB * 1024),
		P1MaximumHuman:   humanize.Bytes(info.P1MaximumKB * 1024),
	}, nil
}

func (s *Session) logDebug(msg string, fields map[string]interface{}) {
	if s.log != nil {
		s.log.Debug(msg, fields)
	}
}

func (s *Session) logInfo(msg string, fields map[string]interface{}) {
	if s.log != nil {
		s.log.Info(msg, fields)
	}
}
