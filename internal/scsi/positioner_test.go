package scsi

import "testing"

func TestReadPositionParsesFields(t *testing.T) {
	fake := &fakeIssuer{handler: func(call fakeCall, data, sense []byte) (bool, error) {
		// partition = 1 (4-byte field at offset 4)
		data[7] = 1
		// block number = 1000 (8-byte field at offset 8)
		data[15] = 0xE8
		data[14] = 0x03
		// file number = 7 (8-byte field at offset 16)
		data[23] = 7
		data[0] = 0x04 // EOD flag
		return true, nil
	}}
	pos := NewPositioner(fake, Standard)

	p, err := pos.ReadPosition()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Partition != 1 {
		t.Fatalf("expected partition 1, got %d", p.Partition)
	}
	if p.BlockNumber != 1000 {
		t.Fatalf("expected block number 1000, got %d", p.BlockNumber)
	}
	if p.FileNumber != 7 {
		t.Fatalf("expected file number 7, got %d", p.FileNumber)
	}
	if !p.EndOfData {
		t.Fatalf("expected EndOfData flag set")
	}
}

func TestSpace6EncodesNegativeCountAsTwosComplement(t *testing.T) {
	var gotCDB []byte
	fake := &fakeIssuer{handler: func(call fakeCall, data, sense []byte) (bool, error) {
		gotCDB = call.cdb
		return true, nil
	}}
	pos := NewPositioner(fake, Standard)

	if err := pos.space6(-1, byte(SpaceBlocks)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// -1 as 24-bit two's complement is 0xFFFFFF.
	if gotCDB[2] != 0xFF || gotCDB[3] != 0xFF || gotCDB[4] != 0xFF {
		t.Fatalf("expected count bytes 0xFFFFFF, got %#x %#x %#x", gotCDB[2], gotCDB[3], gotCDB[4])
	}
}

func TestSpaceEndOfDataForcesCountToOne(t *testing.T) {
	var gotCDB []byte
	fake := &fakeIssuer{handler: func(call fakeCall, data, sense []byte) (bool, error) {
		gotCDB = call.cdb
		return true, nil
	}}
	pos := NewPositioner(fake, Standard)

	if err := pos.Space(SpaceEndOfData, 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCDB[2] != 0 || gotCDB[3] != 0 || gotCDB[4] != 1 {
		t.Fatalf("expected count forced to 1, got %#x %#x %#x", gotCDB[2], gotCDB[3], gotCDB[4])
	}
}

func TestLocate16CDBShape(t *testing.T) {
	var gotCDB []byte
	callNum := 0
	fake := &fakeIssuer{handler: func(call fakeCall, data, sense []byte) (bool, error) {
		callNum++
		if call.cdb[0] == opREADPOSITION {
			return true, nil // partition defaults to 0
		}
		gotCDB = call.cdb
		return true, nil
	}}
	pos := NewPositioner(fake, Standard)

	if err := pos.Locate(DestBlock, 42, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCDB[0] != opLOCATE16 {
		t.Fatalf("expected opcode %#x, got %#x", opLOCATE16, gotCDB[0])
	}
	var addr uint64
	for i := 0; i < 8; i++ {
		addr = addr<<8 | uint64(gotCDB[4+i])
	}
	if addr != 42 {
		t.Fatalf("expected block address 42, got %d", addr)
	}
}
