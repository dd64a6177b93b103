package scsi

import (
	"github.com/RoseOO/ltfsgo/internal/scsierr"
)

// globalBlockLimit bounds how large a residual can be before the
// auto-backtrack-and-replace rule applies; larger residuals are treated as
// genuine short reads instead of a locate-and-retry case.
const globalBlockLimit = 1048576

// directReadLimit is the block count above which ReadBlocks chunks the
// request instead of issuing one oversized READ(6).
const directReadLimit = 256

// chunkBlocks is the chunk size used once a read is split.
const chunkBlocks = 128

// BlockIO issues READ(6)/WRITE(6) against a positioner's Issuer in
// variable-length mode, sizing transfers in units of its configured block
// size.
type BlockIO struct {
	issuer    Issuer
	pos       *Positioner
	blockSize int
	sense     []byte
}

// NewBlockIO creates a BlockIO for the given fixed block size.
func NewBlockIO(issuer Issuer, pos *Positioner, blockSize int) *BlockIO {
	return &BlockIO{issuer: issuer, pos: pos, blockSize: blockSize, sense: make([]byte, 64)}
}

func (b *BlockIO) issue(cdb []byte, dir DataDirection, data []byte) (SenseInfo, bool, error) {
	for i := range b.sense {
		b.sense[i] = 0
	}
	completed, err := b.issuer.Issue(cdb, dir, data, b.sense)
	if err != nil {
		return SenseInfo{}, false, err
	}
	return DecodeSense(b.sense), completed, nil
}

// readVarCDB builds a variable-length-mode READ(6) CDB: the fixed-length
// bit (cdb[1] bit 0) is clear, and bytes 2..4 carry the requested transfer
// length as a byte count rather than a block count.
func readVarCDB(byteCount int) []byte {
	cdb := make([]byte, 6)
	cdb[0] = opREAD6
	cdb[1] = 0x00
	cdb[2] = byte(byteCount >> 16)
	cdb[3] = byte(byteCount >> 8)
	cdb[4] = byte(byteCount)
	return cdb
}

// readOne issues a single variable-length READ(6) sized to len(out) bytes,
// returning the number of bytes actually transferred (which may differ from
// b.blockSize on a short read) and the decoded sense.
func (b *BlockIO) readOne(out []byte) (int, SenseInfo, error) {
	cdb := readVarCDB(len(out))
	sense, _, err := b.issue(cdb, DirFromDevice, out)
	if err != nil {
		return 0, SenseInfo{}, err
	}
	n := len(out)
	if sense.DiffBytes != 0 {
		n = len(out) - int(sense.DiffBytes)
		if n < 0 {
			n = 0
		}
		if n > len(out) {
			n = len(out)
		}
	}
	return n, sense, nil
}

// ReadBlocks reads up to n blocks of b.blockSize bytes each into out
// (which must be at least n*blockSize), applying the auto-backtrack rule:
// when a block returns smaller than requested by less than
// globalBlockLimit, the block is re-read at block-1 via LOCATE(16) and the
// re-read bytes REPLACE (never append to) the short chunk.
func (b *BlockIO) ReadBlocks(n int, out []byte) (int, error) {
	if n <= directReadLimit {
		return b.readDirect(n, out)
	}
	total := 0
	for total < n {
		step := chunkBlocks
		if n-total < step {
			step = n - total
		}
		got, err := b.readDirect(step, out[total*b.blockSize:])
		total += got
		if err != nil || got < step {
			return total, err
		}
	}
	return total, nil
}

func (b *BlockIO) readDirect(n int, out []byte) (int, error) {
	want := n * b.blockSize
	if want > len(out) {
		want = len(out)
	}
	cdb := readVarCDB(want)
	sense, completed, err := b.issue(cdb, DirFromDevice, out[:want])
	if err != nil {
		return 0, err
	}
	if !completed && sense.Classify() == ClassTerminate {
		return 0, scsierr.Newf(scsierr.Scsi, "read failed: %s", sense)
	}

	if sense.DiffBytes < 0 && -sense.DiffBytes < globalBlockLimit {
		pos, err := b.pos.ReadPosition()
		if err != nil {
			return 0, err
		}
		if pos.BlockNumber == 0 {
			return n, nil
		}
		if err := b.pos.Locate(DestBlock, pos.BlockNumber-1, pos.Partition); err != nil {
			return 0, err
		}
		return b.readDirect(n, out)
	}

	gotBytes := want
	if sense.DiffBytes > 0 {
		gotBytes = want - int(sense.DiffBytes)
		if gotBytes < 0 {
			gotBytes = 0
		}
	}
	blocksRead := gotBytes / b.blockSize
	if gotBytes%b.blockSize != 0 {
		blocksRead++
	}
	return blocksRead, nil
}

// WriteBlocks issues a variable-length WRITE(6) for exactly len(data) bytes.
// The caller's buffer length is written verbatim, never rounded up to a
// multiple of b.blockSize: a short final block is the caller's to manage.
func (b *BlockIO) WriteBlocks(data []byte) error {
	cdb := make([]byte, 6)
	cdb[0] = opWRITE6
	cdb[1] = 0x00
	cdb[2] = byte(len(data) >> 16)
	cdb[3] = byte(len(data) >> 8)
	cdb[4] = byte(len(data))

	sense, completed, err := b.issue(cdb, DirToDevice, data)
	if err != nil {
		return err
	}
	if !completed {
		return scsierr.Newf(scsierr.Scsi, "write failed: %s", sense)
	}
	return nil
}
