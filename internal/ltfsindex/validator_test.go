package ltfsindex

import "testing"

const testTime = "2026-01-01T00:00:00Z"

func baseIndex() *Index {
	return &Index{
		Version:          "2.4.0",
		VolumeUUID:       "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		GenerationNumber: 1,
		Root: Directory{
			UID:          1,
			Name:         "",
			CreationTime: testTime, ChangeTime: testTime, ModifyTime: testTime, AccessTime: testTime, BackupTime: testTime,
			Files: []File{
				{UID: 2, Name: "a.txt", Length: 5,
					CreationTime: testTime, ChangeTime: testTime, ModifyTime: testTime, AccessTime: testTime, BackupTime: testTime,
					Extents: []Extent{
						{Partition: "b", ByteCount: 5, FileOffset: 0},
					}},
			},
		},
	}
}

func TestValidateAcceptsWellFormedIndex(t *testing.T) {
	d := Validate(baseIndex())
	if !d.IsValid {
		t.Fatalf("expected valid index, got errors: %v", d.Errors)
	}
}

func TestValidateRejectsZeroGenerationNumber(t *testing.T) {
	idx := baseIndex()
	idx.GenerationNumber = 0
	d := Validate(idx)
	if d.IsValid {
		t.Fatalf("expected generation number 0 to be rejected")
	}
}

func TestValidateRejectsDuplicateUID(t *testing.T) {
	idx := baseIndex()
	idx.Root.Files = append(idx.Root.Files, File{UID: 2, Name: "b.txt", Length: 1,
		CreationTime: testTime, ChangeTime: testTime, ModifyTime: testTime, AccessTime: testTime, BackupTime: testTime,
		Extents: []Extent{
			{Partition: "a", ByteCount: 1},
		}})
	d := Validate(idx)
	if d.IsValid {
		t.Fatalf("expected duplicate UID across files to be rejected")
	}
}

func TestValidateRejectsExtentSizeMismatch(t *testing.T) {
	idx := baseIndex()
	idx.Root.Files[0].Length = 999
	d := Validate(idx)
	if d.IsValid {
		t.Fatalf("expected size/extent mismatch to be rejected")
	}
}

func TestValidateRejectsInvalidPartitionLetter(t *testing.T) {
	idx := baseIndex()
	idx.Root.Files[0].Extents[0].Partition = "c"
	d := Validate(idx)
	if d.IsValid {
		t.Fatalf("expected invalid partition letter to be rejected")
	}
}

func TestValidateDemotesMalformedUUIDToWarning(t *testing.T) {
	idx := baseIndex()
	idx.VolumeUUID = "not-a-real-uuid"
	d := Validate(idx)
	if !d.IsValid {
		t.Fatalf("malformed but non-empty UUID must not be a hard error: %v", d.Errors)
	}
	if len(d.Warnings) == 0 {
		t.Fatalf("expected a warning for malformed UUID")
	}
}

func TestValidateRejectsEmptyVolumeUUID(t *testing.T) {
	idx := baseIndex()
	idx.VolumeUUID = ""
	d := Validate(idx)
	if d.IsValid {
		t.Fatalf("expected empty volume UUID to be a hard error")
	}
}

func TestValidateRejectsNameConflictBetweenFileAndDir(t *testing.T) {
	idx := baseIndex()
	idx.Root.Directories = []Directory{{UID: 3, Name: "a.txt",
		CreationTime: testTime, ChangeTime: testTime, ModifyTime: testTime, AccessTime: testTime, BackupTime: testTime}}
	d := Validate(idx)
	if d.IsValid {
		t.Fatalf("expected name conflict between file and directory to be rejected")
	}
}
