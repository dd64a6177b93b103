// Package media holds the static LTO generation tables shared by the MAM
// and capacity-manager packages: native cartridge capacity by generation
// and the SCSI density/media-code to generation mapping used by MODE SENSE
// page 0x1D.
package media

import "strings"

// NativeCapacity maps an LTO generation string to its native capacity in
// bytes (uncompressed).
var NativeCapacity = map[string]int64{
	"LTO-1":  100000000000,   // 100 GB
	"LTO-2":  200000000000,   // 200 GB
	"LTO-3":  400000000000,   // 400 GB
	"LTO-4":  800000000000,   // 800 GB
	"LTO-5":  1500000000000,  // 1.5 TB
	"LTO-6":  2500000000000,  // 2.5 TB
	"LTO-7":  6000000000000,  // 6 TB
	"LTO-8":  12000000000000, // 12 TB
	"LTO-9":  18000000000000, // 18 TB
	"LTO-10": 36000000000000, // 36 TB (expected)
}

// DensityToGeneration maps a SCSI density/media code (as printed by MODE
// SENSE page 0x1D / INQUIRY) to an LTO generation string. LTO cartridges
// use the same recording density whether RW or WORM; the WORM bit lives
// elsewhere in the mode page, not in this code.
var DensityToGeneration = map[string]string{
	"0x40": "LTO-1",
	"0x42": "LTO-2",
	"0x44": "LTO-3",
	"0x46": "LTO-4",
	"0x58": "LTO-5",
	"0x5a": "LTO-6",
	"0x5c": "LTO-7",
	"0x5d": "LTO-7", // LTO-7 Type M (M8)
	"0x5e": "LTO-8",
	"0x60": "LTO-9",
	"0x62": "LTO-10",
}

// GenerationFromDensity returns the LTO generation for a density code such
// as "0x58". The match is case-insensitive.
func GenerationFromDensity(densityCode string) (string, bool) {
	gen, ok := DensityToGeneration[strings.ToLower(densityCode)]
	return gen, ok
}

// DefaultCapacity is the conservative estimate used when no log page, MAM
// attribute, or density code yields a usable capacity.
const DefaultCapacity int64 = 1000000000000 // 1 TB
