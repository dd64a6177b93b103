package scsi

import (
	"bytes"
	"errors"
	"testing"
)

var errReadFailure = errors.New("simulated transport failure")

func TestReadToFileMarkImmediateMark(t *testing.T) {
	fake := &fakeIssuer{handler: func(call fakeCall, data, sense []byte) (bool, error) {
		// A short read carrying the full block length as the residual: no
		// bytes transferred, drive already sitting at a file mark.
		sense[3], sense[4], sense[5], sense[6] = byte(len(data) >> 24), byte(len(data) >> 16), byte(len(data) >> 8), byte(len(data))
		return true, nil
	}}
	blocks := NewBlockIO(fake, nil, 512)

	out, err := blocks.ReadToFileMark()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty buffer at immediate file mark, got %d bytes", len(out))
	}
}

func TestReadToFileMarkAccumulatesThenStops(t *testing.T) {
	blockSize := 16
	blocksToServe := 3
	served := 0

	fake := &fakeIssuer{handler: func(call fakeCall, data, sense []byte) (bool, error) {
		if served >= blocksToServe {
			sense[3], sense[4], sense[5], sense[6] = byte(len(data) >> 24), byte(len(data) >> 16), byte(len(data) >> 8), byte(len(data))
			return true, nil
		}
		for i := range data {
			data[i] = byte('a' + served)
		}
		served++
		return true, nil
	}}
	blocks := NewBlockIO(fake, nil, blockSize)

	out, err := blocks.ReadToFileMark()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != blockSize*blocksToServe {
		t.Fatalf("expected %d bytes, got %d", blockSize*blocksToServe, len(out))
	}
	if !bytes.HasPrefix(out, bytes.Repeat([]byte("a"), blockSize)) {
		t.Fatalf("unexpected content in first block: %q", out[:blockSize])
	}
}

func TestReadToFileMarkExpandsCapOnXMLDetection(t *testing.T) {
	blockSize := 8
	calls := 0

	fake := &fakeIssuer{handler: func(call fakeCall, data, sense []byte) (bool, error) {
		calls++
		switch {
		case calls == 1:
			copy(data, []byte("<?xml..."))
		case calls <= initialBlockCap+5:
			copy(data, []byte("filler.."))
		default:
			sense[3], sense[4], sense[5], sense[6] = 0, 0, 0, byte(len(data))
		}
		return true, nil
	}}
	blocks := NewBlockIO(fake, nil, blockSize)

	out, err := blocks.ReadToFileMark()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) <= initialBlockCap*blockSize {
		t.Fatalf("expected cap expansion past initialBlockCap blocks, got %d bytes", len(out))
	}
}

func TestReadToFileMarkTooManyConsecutiveErrors(t *testing.T) {
	fake := &fakeIssuer{handler: func(call fakeCall, data, sense []byte) (bool, error) {
		return false, errReadFailure
	}}
	blocks := NewBlockIO(fake, nil, 512)

	_, err := blocks.ReadToFileMark()
	if err == nil {
		t.Fatalf("expected error after repeated read failures")
	}
}
