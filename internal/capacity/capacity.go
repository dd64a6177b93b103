// Package capacity implements the partition-capacity fallback chain: LOG
// SENSE page 0x31 (capacity), page 0x17 (volume statistics), and page 0x88
// (write-error-rate log, "WERL") first; MAM attributes next; the static
// media-generation table last.
package capacity

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RoseOO/ltfsgo/internal/mam"
	"github.com/RoseOO/ltfsgo/internal/media"
	"github.com/RoseOO/ltfsgo/internal/scsi"
	"github.com/RoseOO/ltfsgo/internal/scsierr"
)

const (
	opLogSense = 0x4D

	pageCapacity = 0x31
	pageVolStats = 0x17
	pageWERL     = 0x88

	volStatsGeneration   = 0x45
	volStatsWriteProtect = 0x80
	volStatsWORM         = 0x81
)

// Info is a cartridge's capacity and health snapshot, mirroring what a
// RefreshCapacity call reports in the original.
type Info struct {
	P0RemainingKB   uint64
	P0MaximumKB     uint64
	P1RemainingKB   uint64
	P1MaximumKB     uint64
	Generation      string
	IsWORM          bool
	IsWriteProtect  bool
	MediaDescription string
	ErrorRateLog    float64
}

// Manager tracks WERL channel history across calls so each refresh reports
// a delta-based error rate instead of a meaningless absolute counter.
type Manager struct {
	issuer      scsi.Issuer
	lastC1Err   [8]uint32
	lastNoCCPs  [8]uint32
	history     []float64
}

// NewManager creates a capacity Manager bound to issuer.
func NewManager(issuer scsi.Issuer) *Manager {
	return &Manager{issuer: issuer}
}

// Refresh reads the capacity, volume-statistics, and WERL log pages,
// falling back to MAM attributes and finally the static media table for any
// partition maximum the log pages didn't provide.
func (m *Manager) Refresh(extraPartitionCount int) (Info, error) {
	var info Info

	if capData, err := m.logSense(pageCapacity, 0x01); err == nil {
		info.P0RemainingKB = extractCapacityParam(capData, 1)
		info.P0MaximumKB = extractCapacityParam(capData, 3)
		if extraPartitionCount > 0 {
			info.P1RemainingKB = extractCapacityParam(capData, 2)
			info.P1MaximumKB = extractCapacityParam(capData, 4)
		}
	}
	// Page 0x31 unsupported or empty: P0/P1 maximums stay zero here and are
	// picked up by the MAM/media-table fallback below.

	if volData, err := m.logSense(pageVolStats, 0x01); err == nil && len(volData) > 0 {
		if gen, ok := volStatsPage(volData, volStatsGeneration); ok {
			info.Generation = parseGenerationString(strings.TrimRight(string(gen), "\x00"))
		}
		if wp, ok := volStatsPage(volData, volStatsWriteProtect); ok && len(wp) > 0 {
			info.IsWriteProtect = wp[len(wp)-1] != 0
		}
		if worm, ok := volStatsPage(volData, volStatsWORM); ok && len(worm) > 0 {
			info.IsWORM = worm[len(worm)-1] != 0
		}
	}

	info.ErrorRateLog = m.readErrorRate()
	info.MediaDescription = buildMediaDescription(info.Generation, info.IsWORM, info.IsWriteProtect)

	if info.P0MaximumKB == 0 {
		info.P0MaximumKB = m.readMAMCapacityKB(mam.AttrMaximumCapacity, 0)
	}
	if extraPartitionCount > 0 && info.P1MaximumKB == 0 {
		info.P1MaximumKB = m.readMAMCapacityKB(0x0101, 1)
	}

	// Log pages and MAM both came up empty: fall back to the media-code
	// capacity table, and finally a flat conservative estimate.
	if info.P0MaximumKB == 0 {
		info.P0MaximumKB = uint64(EstimateBytes(m.issuer)) / 1024
	}
	if extraPartitionCount > 0 && info.P1MaximumKB == 0 {
		info.P1MaximumKB = uint64(EstimateBytes(m.issuer)) / 1024
	}

	return info, nil
}

// EstimateBytes returns a best-effort total native capacity in bytes for
// the loaded media, used when the log-page/MAM chain above yields nothing
// at all: density code lookup, then a conservative flat default.
func EstimateBytes(issuer scsi.Issuer) int64 {
	info, err := mam.IdentifyMedia(issuer)
	if err == nil && info.Generation != "" {
		if capacity, ok := media.NativeCapacity[info.Generation]; ok {
			return capacity
		}
	}
	return media.DefaultCapacity
}

func (m *Manager) logSense(page, subpage byte) ([]byte, error) {
	cdb := make([]byte, 10)
	cdb[0] = opLogSense
	cdb[2] = 0x40 | (page & 0x3F) // PC=01 (cumulative), page code
	cdb[3] = subpage

	data := make([]byte, 4)
	sense := make([]byte, 64)
	completed, err := m.issuer.Issue(cdb, scsi.DirFromDevice, data, sense)
	if err != nil {
		return nil, err
	}
	if !completed {
		info := scsi.DecodeSense(sense)
		return nil, scsierr.Newf(scsierr.Scsi, "log sense page %#02x header: %s", page, info)
	}

	pageLen := int(data[2])<<8 | int(data[3])
	if pageLen == 0 {
		return data, nil
	}

	full := make([]byte, 4+pageLen)
	cdb[7] = byte(len(full) >> 8)
	cdb[8] = byte(len(full))
	completed, err = m.issuer.Issue(cdb, scsi.DirFromDevice, full, sense)
	if err != nil {
		return nil, err
	}
	if !completed {
		info := scsi.DecodeSense(sense)
		return nil, scsierr.Newf(scsierr.Scsi, "log sense page %#02x: %s", page, info)
	}
	return full, nil
}

// extractCapacityParam finds paramCode in a page-0x31 log page and decodes
// its value as either a 4- or 8-byte big-endian integer depending on the
// parameter's declared length.
func extractCapacityParam(page []byte, paramCode uint16) uint64 {
	if len(page) < 4 {
		return 0
	}
	pageLength := int(page[2])<<8 | int(page[3])
	offset := 4
	for offset+4 <= len(page) && offset < 4+pageLength {
		code := uint16(page[offset])<<8 | uint16(page[offset+1])
		paramLen := int(page[offset+3])
		dataStart := offset + 4

		if code == paramCode {
			available := len(page) - dataStart
			if available < paramLen {
				paramLen = available
			}
			switch {
			case paramLen >= 8:
				return beUint64(page[dataStart : dataStart+8])
			case paramLen >= 4:
				return uint64(beUint32(page[dataStart : dataStart+4]))
			default:
				return 0
			}
		}

		next := offset + 4 + int(page[offset+3])
		if next <= offset || next > len(page) {
			break
		}
		offset = next
	}
	return 0
}

// volStatsPage extracts the raw value bytes for a page-0x17 sub-page id.
func volStatsPage(page []byte, pageID byte) ([]byte, bool) {
	offset := 4
	for offset+4 < len(page) {
		currentPage := page[offset+1]
		paramLength := int(page[offset+2])<<8 | int(page[offset+3])

		if currentPage == pageID {
			if offset+4+paramLength <= len(page) {
				return page[offset+4 : offset+4+paramLength], true
			}
			return nil, false
		}
		offset += 4 + paramLength
	}
	return nil, false
}

// readErrorRate reads the WERL (page 0x88) header, then the full page, and
// folds it into a single log10 error-rate value using a per-channel delta
// formula: log10(delta_c1 / delta_ccps / 2 / 1920), taking the highest
// (least negative) of the negative channel rates and clamping anything
// below -10 to a flat 0 (healthy).
func (m *Manager) readErrorRate() float64 {
	header, err := m.readWERL(4)
	if err != nil || len(header) != 4 {
		return 0
	}
	pageLength := int(header[2])<<8 | int(header[3])
	if pageLength == 0 {
		return 0
	}
	full, err := m.readWERL(pageLength + 4)
	if err != nil || len(full) < 4 {
		return 0
	}
	return m.parseWERL(full[4:])
}

func (m *Manager) readWERL(length int) ([]byte, error) {
	cdb := make([]byte, 6)
	cdb[0] = opLogSense
	cdb[1] = 0x01
	cdb[2] = pageWERL
	cdb[3] = byte(length >> 8)
	cdb[4] = byte(length)

	data := make([]byte, length)
	sense := make([]byte, 64)
	completed, err := m.issuer.Issue(cdb, scsi.DirFromDevice, data, sense)
	if err != nil {
		return nil, err
	}
	if !completed {
		info := scsi.DecodeSense(sense)
		return nil, scsierr.Newf(scsierr.Scsi, "werl page read: %s", info)
	}
	return data, nil
}

// parseWERL decodes the WERL page as ASCII, 5 tab/CR/LF separated tokens
// per channel (C1Err at index 0, NoCCPs at index 4, both hex), and computes
// the signed delta-based error rate. Using the signed "information" field
// from sense data elsewhere in this engine is a deliberate correction of
// unsigned arithmetic that can otherwise wrap the delta to a huge value.
func (m *Manager) parseWERL(data []byte) float64 {
	text := string(data)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\r' || r == '\n' || r == '\t'
	})

	result := math.Inf(-1)
	for ch := 0; (ch+1)*5 <= len(fields); ch++ {
		chunk := fields[ch*5 : ch*5+5]
		c1Err64, _ := strconv.ParseUint(chunk[0], 16, 32)
		noCCPs64, _ := strconv.ParseUint(chunk[4], 16, 32)
		c1Err := uint32(c1Err64)
		noCCPs := uint32(noCCPs64)

		if ch >= len(m.lastNoCCPs) {
			continue
		}
		if noCCPs > m.lastNoCCPs[ch] {
			deltaCCPs := noCCPs - m.lastNoCCPs[ch]
			deltaC1 := int64(c1Err) - int64(m.lastC1Err[ch])
			if deltaC1 < 0 {
				deltaC1 = 0
			}
			if deltaCCPs > 0 {
				rate := math.Log10(float64(deltaC1) / float64(deltaCCPs) / 2.0 / 1920.0)
				if rate < 0 {
					result = math.Max(result, rate)
				}
			}
		}
		m.lastC1Err[ch] = c1Err
		m.lastNoCCPs[ch] = noCCPs
	}

	if result < -10.0 {
		result = 0.0
	}
	if result < 0.0 {
		m.history = append(m.history, result)
	}
	if math.IsInf(result, -1) {
		return 0
	}
	return result
}

// ErrorRateHistory returns the negative error-rate samples recorded across
// calls to Refresh.
func (m *Manager) ErrorRateHistory() []float64 { return m.history }

func parseGenerationString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Unknown"
	}
	last := rune(s[len(s)-1])
	if last >= '0' && last <= '9' {
		if strings.Contains(strings.ToUpper(s), "T10K") {
			return fmt.Sprintf("T%c", last)
		}
		return fmt.Sprintf("L%c", last)
	}
	return s
}

func buildMediaDescription(generation string, isWORM, isWriteProtect bool) string {
	var b strings.Builder
	b.WriteString(generation)
	if isWORM {
		b.WriteString(" WORM")
	}
	if isWriteProtect {
		b.WriteString(" RO")
	} else {
		b.WriteString(" RW")
	}
	return b.String()
}

// readMAMCapacityKB reads a capacity-class MAM attribute and decodes it as
// a big-endian integer in kilobytes, accepting either the standard 8-byte
// form or the 4-byte form some older drives report.
func (m *Manager) readMAMCapacityKB(attrID uint16, partition byte) uint64 {
	value, err := mam.ReadAttribute(m.issuer, partition, attrID)
	if err != nil {
		return 0
	}
	switch {
	case len(value) >= 8:
		return beUint64(value[:8])
	case len(value) >= 4:
		return uint64(beUint32(value[:4]))
	default:
		return 0
	}
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func beUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
