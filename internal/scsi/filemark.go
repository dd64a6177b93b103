package scsi

import (
	"bytes"

	"github.com/RoseOO/ltfsgo/internal/scsierr"
)

// initialBlockCap and hardBlockCap bound ReadToFileMark's accumulation loop:
// it starts conservative, then expands once the buffer looks like it is
// carrying an LTFS index (the "<?xml" prologue appears), since a real index
// can run well past the initial cap.
const (
	initialBlockCap = 200
	hardBlockCap    = 65536
)

const maxConsecutiveErrors = 3

// ReadToFileMark reads single blocks with READ(6) and appends them to a
// buffer until a file mark or end-of-data condition is reported (add_key>=1
// and add_key!=4) or a read returns no data. It stops early if the cap is
// reached without finding a mark.
func (b *BlockIO) ReadToFileMark() ([]byte, error) {
	var out bytes.Buffer
	limit := initialBlockCap
	consecutiveErrors := 0

	for blocksRead := 0; blocksRead < limit; blocksRead++ {
		chunk := make([]byte, b.blockSize)
		n, sense, replaced, err := b.readOneWithBacktrack(chunk)
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveErrors {
				return out.Bytes(), scsierr.Wrap(scsierr.Scsi, err, "read to file mark: too many consecutive errors")
			}
			continue
		}
		consecutiveErrors = 0

		if n == 0 {
			break
		}
		if replaced {
			// Auto-backtrack fired: the re-read result replaces, rather
			// than appends to, the block just written.
			truncateLastBlock(&out, b.blockSize)
		}
		out.Write(chunk[:n])

		if sense.IsFileMark() {
			break
		}

		if limit == initialBlockCap && bytes.Contains(out.Bytes(), []byte("<?xml")) {
			limit = hardBlockCap
		}
	}

	return out.Bytes(), nil
}

// truncateLastBlock drops the most recently written block-sized (or
// smaller, for a short final block) chunk from out so a backtrack re-read
// can replace it instead of appending after it.
func truncateLastBlock(out *bytes.Buffer, blockSize int) {
	keep := out.Len() - blockSize
	if keep < 0 {
		keep = 0
	}
	remaining := append([]byte(nil), out.Bytes()[:keep]...)
	out.Reset()
	out.Write(remaining)
}

// readOneWithBacktrack wraps readOne with the same auto-backtrack rule
// block I/O chunk reads use: a small negative residual means the drive
// under-delivered for a smaller-than-expected block, so the position backs
// up one block via LOCATE(16) and the block is re-read. replaced reports
// whether this happened, so the caller knows to replace rather than append
// its previous write for this block.
func (b *BlockIO) readOneWithBacktrack(out []byte) (n int, sense SenseInfo, replaced bool, err error) {
	n, sense, err = b.readOne(out)
	if err != nil {
		return 0, SenseInfo{}, false, err
	}
	if sense.DiffBytes < 0 && -sense.DiffBytes < globalBlockLimit {
		pos, perr := b.pos.ReadPosition()
		if perr != nil {
			return 0, SenseInfo{}, false, perr
		}
		if pos.BlockNumber == 0 {
			return n, sense, false, nil
		}
		if err := b.pos.Locate(DestBlock, pos.BlockNumber-1, pos.Partition); err != nil {
			return 0, SenseInfo{}, false, err
		}
		n, sense, _, err = b.readOneWithBacktrack(out)
		return n, sense, true, err
	}
	return n, sense, false, nil
}
