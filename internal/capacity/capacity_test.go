package capacity

import "testing"

func TestExtractCapacityParam4And8ByteEquivalence(t *testing.T) {
	page4 := buildCapacityPage(map[uint16][]byte{
		1: {0x00, 0x00, 0x03, 0xE8}, // 1000, 4-byte
	})
	page8 := buildCapacityPage(map[uint16][]byte{
		1: {0, 0, 0, 0, 0x00, 0x00, 0x03, 0xE8}, // 1000, 8-byte
	})

	v4 := extractCapacityParam(page4, 1)
	v8 := extractCapacityParam(page8, 1)
	if v4 != 1000 || v8 != 1000 {
		t.Fatalf("expected both encodings to decode to 1000, got %d and %d", v4, v8)
	}
}

func TestExtractCapacityParamMissingCodeReturnsZero(t *testing.T) {
	page := buildCapacityPage(map[uint16][]byte{
		2: {0, 0, 0, 5},
	})
	if v := extractCapacityParam(page, 1); v != 0 {
		t.Fatalf("expected 0 for absent parameter code, got %d", v)
	}
}

func buildCapacityPage(params map[uint16][]byte) []byte {
	var body []byte
	for code, data := range params {
		body = append(body, byte(code>>8), byte(code), 0x00, byte(len(data)))
		body = append(body, data...)
	}
	page := make([]byte, 4+len(body))
	page[2] = byte(len(body) >> 8)
	page[3] = byte(len(body))
	copy(page[4:], body)
	return page
}

func TestParseWERLNoChannelsBelowFiveTokensIsZero(t *testing.T) {
	m := NewManager(nil)
	rate := m.parseWERL([]byte("1\t2\t3\t4"))
	if rate != 0 {
		t.Fatalf("expected 0 for a channel chunk shorter than 5 tokens, got %v", rate)
	}
}

func TestParseWERLComputesNegativeRateOnDelta(t *testing.T) {
	m := NewManager(nil)
	// Prime history: first call establishes the baseline (no delta yet).
	m.parseWERL([]byte("0\t0\t0\t0\t0\r\n"))
	rate := m.parseWERL([]byte("a\t0\t0\t0\t1e0\r\n"))
	if rate >= 0 {
		t.Fatalf("expected a negative log10 error rate, got %v", rate)
	}
	if len(m.ErrorRateHistory()) == 0 {
		t.Fatalf("expected the negative sample to be recorded in history")
	}
}

func TestBuildMediaDescriptionWormAndWriteProtect(t *testing.T) {
	desc := buildMediaDescription("LTO-8", true, true)
	if desc != "LTO-8 WORM RO" {
		t.Fatalf("unexpected media description: %q", desc)
	}
}
