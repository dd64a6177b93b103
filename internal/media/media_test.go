package media

import "testing"

func TestGenerationFromDensityKnownCode(t *testing.T) {
	gen, ok := GenerationFromDensity("0x58")
	if !ok || gen != "LTO-5" {
		t.Fatalf("expected LTO-5, got %q (ok=%v)", gen, ok)
	}
}

func TestGenerationFromDensityCaseInsensitive(t *testing.T) {
	gen, ok := GenerationFromDensity("0X5A")
	if !ok || gen != "LTO-6" {
		t.Fatalf("expected LTO-6, got %q (ok=%v)", gen, ok)
	}
}

func TestGenerationFromDensityUnknownCode(t *testing.T) {
	if _, ok := GenerationFromDensity("0xff"); ok {
		t.Fatalf("expected unknown density code to report ok=false")
	}
}

func TestNativeCapacityMonotonicAcrossGenerations(t *testing.T) {
	order := []string{"LTO-1", "LTO-2", "LTO-3", "LTO-4", "LTO-5", "LTO-6", "LTO-7", "LTO-8", "LTO-9", "LTO-10"}
	for i := 1; i < len(order); i++ {
		if NativeCapacity[order[i]] <= NativeCapacity[order[i-1]] {
			t.Fatalf("expected %s capacity > %s capacity", order[i], order[i-1])
		}
	}
}
