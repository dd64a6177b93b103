package scsi

import (
	"github.com/RoseOO/ltfsgo/internal/scsierr"
)

// LocateDestType selects what a LOCATE command's block_address argument
// addresses.
type LocateDestType byte

const (
	DestBlock LocateDestType = 0
	DestEOD   LocateDestType = 3
)

// SpaceType selects what a SPACE command's count argument counts.
type SpaceType byte

const (
	SpaceBlocks          SpaceType = 0
	SpaceFileMarks       SpaceType = 1
	SpaceSequentialMarks SpaceType = 2
	SpaceEndOfData       SpaceType = 3
)

// Position is the decoded response to READ POSITION (service action 6,
// AllowPartition mode).
type Position struct {
	Partition            byte
	BlockNumber          uint64
	FileNumber           uint64
	SetNumber            uint64
	EndOfData            bool
	BeginningOfPartition bool
}

// Positioner issues LOCATE/SPACE/READ POSITION against an Issuer, dispatching
// CDB construction by drive type.
type Positioner struct {
	issuer Issuer
	drive  DriveType
	sense  []byte
}

// NewPositioner creates a Positioner for the given drive variant.
func NewPositioner(issuer Issuer, drive DriveType) *Positioner {
	return &Positioner{issuer: issuer, drive: drive, sense: make([]byte, 64)}
}

func (p *Positioner) issue(cdb []byte, dir DataDirection, data []byte) (SenseInfo, bool, error) {
	for i := range p.sense {
		p.sense[i] = 0
	}
	completed, err := p.issuer.Issue(cdb, dir, data, p.sense)
	if err != nil {
		return SenseInfo{}, false, err
	}
	return DecodeSense(p.sense), completed, nil
}

// ReadPosition issues READ POSITION (service action 6) and decodes the
// 32-byte long-form response. The partition number is assembled from the
// 4-byte field at offset 4, not a single byte — a common source of
// off-by-one-partition bugs in naive implementations.
func (p *Positioner) ReadPosition() (Position, error) {
	cdb := make([]byte, 10)
	cdb[0] = opREADPOSITION
	cdb[1] = 0x06

	data := make([]byte, 32)
	sense, completed, err := p.issue(cdb, DirFromDevice, data)
	if err != nil {
		return Position{}, err
	}
	if !completed {
		return Position{}, scsierr.Newf(scsierr.Scsi, "read position failed: %s", sense)
	}

	flags := data[0]
	var partitionNum uint32
	for i := 0; i < 4; i++ {
		partitionNum = partitionNum<<8 | uint32(data[4+i])
	}
	var blockNumber, fileNumber, setNumber uint64
	for i := 0; i < 8; i++ {
		blockNumber = blockNumber<<8 | uint64(data[8+i])
	}
	for i := 0; i < 8; i++ {
		fileNumber = fileNumber<<8 | uint64(data[16+i])
	}
	for i := 0; i < 8; i++ {
		setNumber = setNumber<<8 | uint64(data[24+i])
	}

	return Position{
		Partition:            byte(partitionNum),
		BlockNumber:          blockNumber,
		FileNumber:           fileNumber,
		SetNumber:            setNumber,
		EndOfData:            flags&0x04 != 0,
		BeginningOfPartition: flags&0x08 != 0,
	}, nil
}

// Space issues SPACE(6). EndOfData forces count to 1 regardless of the
// caller's argument: the SCSI standard only defines a single step of EOD
// positioning, and passing any other count there is a command-format
// violation on compliant drives.
func (p *Positioner) Space(spaceType SpaceType, count int32) error {
	actual := count
	if spaceType == SpaceEndOfData {
		actual = 1
	}
	return p.space6(actual, byte(spaceType))
}

func (p *Positioner) space6(count int32, code byte) error {
	cdb := make([]byte, 6)
	cdb[0] = opSPACE6
	cdb[1] = code

	var c uint32
	if count < 0 {
		c = (uint32(-count) ^ 0xFFFFFF) + 1
		c &= 0xFFFFFF
	} else {
		c = uint32(count) & 0xFFFFFF
	}
	cdb[2] = byte(c >> 16)
	cdb[3] = byte(c >> 8)
	cdb[4] = byte(c)

	sense, completed, err := p.issue(cdb, DirNone, nil)
	if err != nil {
		return err
	}
	if !completed && sense.SenseKey != 0 && sense.Classify() != ClassFileMark && sense.Classify() != ClassGood {
		return scsierr.Newf(scsierr.Scsi, "space failed: %s", sense)
	}
	return nil
}

// Locate dispatches LOCATE by drive type. Standard drives use LOCATE(16)
// with a retry to LOCATE(10) on failure; SLR3 uses a drive-specific
// LOCATE(10) CDB; SLR1 uses a six-byte locate with a 20-bit block address;
// M2488 has no vendor CDB of its own and falls back to the Standard path.
func (p *Positioner) Locate(destType LocateDestType, blockAddress uint64, partition byte) error {
	switch p.drive {
	case Standard, M2488:
		return p.locateStandard(destType, blockAddress, partition)
	case SLR3:
		return p.locateSLR3(blockAddress)
	case SLR1:
		return p.locateSLR1(blockAddress)
	default:
		return scsierr.Newf(scsierr.UnsupportedOperation, "unknown drive type %v", p.drive)
	}
}

// locateSLR3 issues LOCATE(10) with the drive-specific code 4 in cdb[1]
// instead of the destination-type/CP encoding Standard drives use.
func (p *Positioner) locateSLR3(blockAddress uint64) error {
	cdb := make([]byte, 10)
	cdb[0] = opLOCATE10
	cdb[1] = 4
	cdb[3] = byte(blockAddress >> 24)
	cdb[4] = byte(blockAddress >> 16)
	cdb[5] = byte(blockAddress >> 8)
	cdb[6] = byte(blockAddress)
	return p.executeLocate(cdb)
}

// locateSLR1 issues the six-byte vendor locate these drives accept: no
// partition support, a 20-bit block address packed across cdb[1..3].
func (p *Positioner) locateSLR1(blockAddress uint64) error {
	cdb := make([]byte, 6)
	cdb[0] = opLOCATESLR1
	addr := uint32(blockAddress) & 0xFFFFF
	cdb[1] = byte(addr >> 16)
	cdb[2] = byte(addr >> 8)
	cdb[3] = byte(addr)
	return p.executeLocate(cdb)
}

func (p *Positioner) locateStandard(destType LocateDestType, blockAddress uint64, partition byte) error {
	cp := byte(0)
	if pos, err := p.ReadPosition(); err == nil && pos.Partition != partition {
		cp = 1
	}

	cdb := make([]byte, 16)
	cdb[0] = opLOCATE16
	cdb[1] = byte(destType)<<3 | cp<<1
	cdb[3] = partition
	for i := 0; i < 8; i++ {
		cdb[4+i] = byte(blockAddress >> (56 - 8*i))
	}

	err := p.executeLocate(cdb)
	if err == nil {
		return nil
	}
	return p.retryLocate10(blockAddress, partition, destType)
}

func (p *Positioner) locate10(blockAddress uint64, partition byte, destType LocateDestType) error {
	cdb := make([]byte, 10)
	cdb[0] = opLOCATE10
	cdb[1] = byte(destType) << 3
	cdb[3] = byte(blockAddress >> 24)
	cdb[4] = byte(blockAddress >> 16)
	cdb[5] = byte(blockAddress >> 8)
	cdb[6] = byte(blockAddress)
	return p.executeLocate(cdb)
}

// retryLocate10 is the Standard-drive fallback after a failed LOCATE(16):
// a LOCATE(10) preserving the low 32 bits of the block address and the
// destination-type field from the original CDB.
func (p *Positioner) retryLocate10(blockAddress uint64, partition byte, destType LocateDestType) error {
	return p.locate10(blockAddress, partition, destType)
}

func (p *Positioner) executeLocate(cdb []byte) error {
	sense, completed, err := p.issue(cdb, DirNone, nil)
	if err != nil {
		return err
	}
	if !completed {
		return scsierr.Newf(scsierr.Scsi, "locate failed: %s", sense)
	}
	if sense.AdditionalKey != 0 && sense.SenseKey != 0x08 {
		return scsierr.Newf(scsierr.Scsi, "locate reported ASC/ASCQ %#04x", sense.AdditionalKey)
	}
	return nil
}

// LocateToFileMark positions to the start of partition, then spaces forward
// to the given file mark. A direct dest_type=FileMark LOCATE is never used:
// this two-step decomposition is what actual drives require.
func (p *Positioner) LocateToFileMark(fileMarkNumber int64, partition byte) error {
	if err := p.Locate(DestBlock, 0, partition); err != nil {
		return err
	}
	return p.Space(SpaceFileMarks, int32(fileMarkNumber))
}

// LocateToEOD positions to the end of data in partition.
func (p *Positioner) LocateToEOD(partition byte) error {
	return p.Locate(DestEOD, 0, partition)
}

// WriteFilemarks issues WRITE FILEMARKS(6) with the immediate bit set.
func (p *Positioner) WriteFilemarks(count uint32) error {
	cdb := make([]byte, 6)
	cdb[0] = opWRITEFILEMARKS
	cdb[1] = 0x01
	cdb[2] = byte(count >> 16)
	cdb[3] = byte(count >> 8)
	cdb[4] = byte(count)

	sense, completed, err := p.issue(cdb, DirNone, nil)
	if err != nil {
		return err
	}
	if !completed {
		return scsierr.Newf(scsierr.Scsi, "write filemarks failed: %s", sense)
	}
	return nil
}

// ReadFileMark implements the skip-current-mark probe: read one block; if
// nothing comes back, the drive is already sitting at a file mark. If data
// does come back, back the tape up by one block — via LOCATE(16) when
// partitions are in play, via SPACE(6,-1,Block) otherwise — and report that
// a backtrack occurred.
func (p *Positioner) ReadFileMark(blocks *BlockIO, allowPartition bool) (wasAtMark bool, err error) {
	buf := make([]byte, blocks.blockSize)
	n, rerr := blocks.ReadBlocks(1, buf)
	if rerr != nil || n == 0 {
		return true, nil
	}

	pos, err := p.ReadPosition()
	if err != nil {
		return false, err
	}

	if allowPartition {
		if pos.BlockNumber > 0 {
			if err := p.Locate(DestBlock, pos.BlockNumber-1, pos.Partition); err != nil {
				return false, err
			}
		}
	} else {
		if err := p.space6(-1, byte(SpaceBlocks)); err != nil {
			return false, err
		}
	}

	return false, nil
}
