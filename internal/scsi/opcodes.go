package scsi

// SCSI operation codes used by this engine.
const (
	opTestUnitReady  = 0x00
	opFORMATUNIT     = 0x04
	opREAD6          = 0x08
	opWRITE6         = 0x0A
	opWRITEFILEMARKS = 0x10
	opSPACE6         = 0x11
	opINQUIRY        = 0x12
	opMODESELECT6    = 0x15
	opMODESENSE6     = 0x1A
	opLOADUNLOAD     = 0x1B
	opLOGSENSE       = 0x4D
	opLOCATE10       = 0x2B
	opREADPOSITION   = 0x34
	opMODESENSE10    = 0x5A
	opREADATTRIBUTE  = 0x8C
	opWRITEATTRIBUTE = 0x8D
	opLOCATE16       = 0x92
	// opLOCATESLR1 is the vendor six-byte LOCATE opcode SLR1 drives accept
	// in place of LOCATE(10)/LOCATE(16).
	opLOCATESLR1 = 0x0C
)
