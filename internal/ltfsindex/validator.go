package ltfsindex

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RoseOO/ltfsgo/internal/scsierr"
)

// Diagnostics summarizes the outcome of validating an Index, for callers
// that want a report rather than a bare error.
type Diagnostics struct {
	IsValid            bool
	DataSize           int
	LTFSVersion        string
	VolumeUUID         string
	Generation         uint64
	FileCountEstimate  int
	Warnings           []string
	Errors             []string
}

// validateXMLStructure performs the cheap, pre-unmarshal sanity checks: the
// index is long enough, carries the expected root tags, and its tag nesting
// is balanced.
func validateXMLStructure(content string) error {
	if len(content) < 50 {
		return scsierr.New(scsierr.Parse, "XML content too short")
	}
	if !strings.Contains(content, "<ltfsindex") {
		return scsierr.New(scsierr.Parse, "missing LTFS index root element")
	}
	if !strings.Contains(content, "</ltfsindex>") {
		return scsierr.New(scsierr.Parse, "XML appears incomplete: missing closing tag")
	}

	openCount, closeCount := 0, 0
	for i := 0; i < len(content); i++ {
		if content[i] != '<' {
			continue
		}
		end := strings.IndexByte(content[i:], '>')
		if end < 0 {
			continue
		}
		tag := content[i : i+end+1]
		switch {
		case strings.HasPrefix(tag, "<?xml"), strings.HasPrefix(tag, "<!--"):
			continue
		case strings.HasPrefix(tag, "</"):
			continue
		case strings.HasSuffix(tag, "/>"):
			continue
		default:
			openCount++
		}
	}
	closeCount = strings.Count(content, "</")

	if openCount != closeCount {
		return scsierr.Newf(scsierr.Parse, "XML structure imbalanced: %d opening tags vs %d closing tags", openCount, closeCount)
	}
	return nil
}

// ValidateIndex runs the full structural validation pass on a parsed Index
// and returns one error listing every hard failure found. Use Validate for a
// full report that also collects non-fatal warnings.
func ValidateIndex(idx *Index) error {
	diag := Validate(idx)
	if !diag.IsValid {
		return scsierr.New(scsierr.Verification, strings.Join(diag.Errors, "; "))
	}
	return nil
}

// Validate runs every structural check and returns a full diagnostics
// report: malformed-but-non-empty volume UUIDs are demoted to a warning
// rather than a hard failure, matching the tone of a version mismatch.
func Validate(idx *Index) Diagnostics {
	var d Diagnostics
	d.LTFSVersion = idx.Version
	d.VolumeUUID = idx.VolumeUUID
	d.Generation = idx.GenerationNumber

	if !strings.HasPrefix(idx.Version, "2.") {
		d.Warnings = append(d.Warnings, fmt.Sprintf("LTFS version %s may not be fully supported", idx.Version))
	}

	if idx.VolumeUUID == "" {
		d.Errors = append(d.Errors, "missing volume UUID")
	} else if _, err := uuid.Parse(idx.VolumeUUID); err != nil {
		d.Warnings = append(d.Warnings, fmt.Sprintf("volume UUID %q is not a standard UUID", idx.VolumeUUID))
	}

	if idx.GenerationNumber == 0 {
		d.Errors = append(d.Errors, "invalid generation number")
	}

	if idx.Root.Name != "" {
		d.Errors = append(d.Errors, "root directory must have empty name")
	}

	validateDirectoryStructure(&idx.Root, &d)
	validateFileExtents(&idx.Root, &d)
	validateUIDUniqueness(idx, &d)
	validateTimestamps(&idx.Root, &d)

	d.FileCountEstimate = countFiles(&idx.Root)
	d.IsValid = len(d.Errors) == 0
	return d
}

func validateDirectoryStructure(dir *Directory, d *Diagnostics) {
	if dir.UID == 0 {
		d.Errors = append(d.Errors, fmt.Sprintf("directory %q has invalid UID 0", dir.Name))
	}

	fileNames := make(map[string]bool)
	dirNames := make(map[string]bool)

	for i := range dir.Files {
		f := &dir.Files[i]
		if f.Name == "" {
			d.Errors = append(d.Errors, "file with empty name found")
			continue
		}
		if fileNames[f.Name] {
			d.Errors = append(d.Errors, fmt.Sprintf("duplicate file name %q in directory %q", f.Name, dir.Name))
		}
		fileNames[f.Name] = true
	}

	for i := range dir.Directories {
		sub := &dir.Directories[i]
		if sub.Name == "" {
			d.Errors = append(d.Errors, "directory with empty name found")
			continue
		}
		if dirNames[sub.Name] {
			d.Errors = append(d.Errors, fmt.Sprintf("duplicate directory name %q in directory %q", sub.Name, dir.Name))
		}
		dirNames[sub.Name] = true
		if fileNames[sub.Name] {
			d.Errors = append(d.Errors, fmt.Sprintf("name conflict: %q exists as both file and directory", sub.Name))
		}
		validateDirectoryStructure(sub, d)
	}
}

func validateFileExtents(dir *Directory, d *Diagnostics) {
	for i := range dir.Files {
		f := &dir.Files[i]
		if f.Symlink != nil {
			continue
		}

		if f.Length > 0 && len(f.Extents) == 0 {
			d.Errors = append(d.Errors, fmt.Sprintf("file %q has size %d but no extents", f.Name, f.Length))
		}
		if f.Length == 0 && len(f.Extents) > 0 {
			d.Warnings = append(d.Warnings, fmt.Sprintf("file %q has zero size but contains extents", f.Name))
		}

		var totalSize uint64
		var lastOffset uint64
		for _, ext := range f.Extents {
			p := strings.ToLower(ext.Partition)
			if p != "a" && p != "b" {
				d.Errors = append(d.Errors, fmt.Sprintf("invalid partition %q in file %q", ext.Partition, f.Name))
			}
			if ext.ByteCount == 0 {
				d.Errors = append(d.Errors, fmt.Sprintf("zero-size extent in file %q", f.Name))
			}
			if ext.FileOffset < lastOffset {
				d.Errors = append(d.Errors, fmt.Sprintf("extents not ordered by file offset in file %q", f.Name))
			}
			lastOffset = ext.FileOffset + ext.ByteCount
			totalSize += ext.ByteCount
		}

		if totalSize != f.Length {
			d.Errors = append(d.Errors, fmt.Sprintf("file %q: declared size %d doesn't match extent total %d", f.Name, f.Length, totalSize))
		}
	}

	for i := range dir.Directories {
		validateFileExtents(&dir.Directories[i], d)
	}
}

func validateUIDUniqueness(idx *Index, d *Diagnostics) {
	seen := make(map[uint64]bool)
	seen[idx.Root.UID] = true
	collectUIDs(&idx.Root, seen, d)
}

func collectUIDs(dir *Directory, seen map[uint64]bool, d *Diagnostics) {
	for i := range dir.Directories {
		sub := &dir.Directories[i]
		if seen[sub.UID] {
			d.Errors = append(d.Errors, fmt.Sprintf("duplicate UID %d found in directory %q", sub.UID, sub.Name))
		}
		seen[sub.UID] = true
		collectUIDs(sub, seen, d)
	}
	for i := range dir.Files {
		f := &dir.Files[i]
		if seen[f.UID] {
			d.Errors = append(d.Errors, fmt.Sprintf("duplicate UID %d found in file %q", f.UID, f.Name))
		}
		seen[f.UID] = true
	}
}

func validateTimestamps(dir *Directory, d *Diagnostics) {
	checkTimestamp(dir.CreationTime, "directory "+dir.Name+" creation_time", d)
	checkTimestamp(dir.ChangeTime, "directory "+dir.Name+" change_time", d)
	checkTimestamp(dir.ModifyTime, "directory "+dir.Name+" modify_time", d)
	checkTimestamp(dir.AccessTime, "directory "+dir.Name+" access_time", d)
	checkTimestamp(dir.BackupTime, "directory "+dir.Name+" backup_time", d)

	for i := range dir.Files {
		f := &dir.Files[i]
		checkTimestamp(f.CreationTime, fmt.Sprintf("file %q creation_time", f.Name), d)
		checkTimestamp(f.ChangeTime, fmt.Sprintf("file %q change_time", f.Name), d)
		checkTimestamp(f.ModifyTime, fmt.Sprintf("file %q modify_time", f.Name), d)
		checkTimestamp(f.AccessTime, fmt.Sprintf("file %q access_time", f.Name), d)
		checkTimestamp(f.BackupTime, fmt.Sprintf("file %q backup_time", f.Name), d)
	}

	for i := range dir.Directories {
		validateTimestamps(&dir.Directories[i], d)
	}
}

func checkTimestamp(ts, field string, d *Diagnostics) {
	if len(ts) < 20 {
		d.Errors = append(d.Errors, fmt.Sprintf("invalid timestamp format in %s: %q (too short)", field, ts))
		return
	}
	if !strings.HasSuffix(ts, "Z") {
		d.Errors = append(d.Errors, fmt.Sprintf("invalid timestamp format in %s: %q (must end with Z)", field, ts))
		return
	}
	if !strings.Contains(ts, "T") {
		d.Errors = append(d.Errors, fmt.Sprintf("invalid timestamp format in %s: %q (missing T separator)", field, ts))
		return
	}
	if _, err := time.Parse(time.RFC3339, ts); err == nil {
		return
	}
	if _, err := time.Parse("2006-01-02T15:04:05.999999999Z", ts); err == nil {
		return
	}
	d.Errors = append(d.Errors, fmt.Sprintf("invalid timestamp format in %s: %q", field, ts))
}

func countFiles(dir *Directory) int {
	count := len(dir.Files)
	for i := range dir.Directories {
		count += countFiles(&dir.Directories[i])
	}
	return count
}
