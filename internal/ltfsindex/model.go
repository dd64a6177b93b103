// Package ltfsindex models, parses, validates, and serializes an LTFS
// index: the XML snapshot of a cartridge's directory tree stored in the
// index partition and, periodically, in the data partition alongside file
// content.
package ltfsindex

import "encoding/xml"

// Index is the root <ltfsindex> element.
type Index struct {
	XMLName         xml.Name  `xml:"ltfsindex"`
	Version         string    `xml:"version,attr"`
	Creator         string    `xml:"creator"`
	VolumeUUID      string    `xml:"volumeuuid"`
	GenerationNumber uint64   `xml:"generationnumber"`
	UpdateTime      string    `xml:"updatetime"`
	Location        *Location `xml:"location"`
	PreviousGenLoc  *Location `xml:"previousgenerationlocation"`
	Root            Directory `xml:"directory"`
}

// Location is a position hint pointing back into the data or index
// partition where a copy of this index (or the previous generation) lives.
type Location struct {
	Partition  string `xml:"partition"`
	StartBlock uint64 `xml:"startblock"`
}

// Directory is a <directory> element: a name, metadata, and nested
// <contents> of files and subdirectories.
type Directory struct {
	UID          uint64     `xml:"uid,attr"`
	Name         string     `xml:"name"`
	ReadOnly     bool       `xml:"readonly,omitempty"`
	CreationTime string     `xml:"creationtime"`
	ChangeTime   string     `xml:"changetime"`
	ModifyTime   string     `xml:"modifytime"`
	AccessTime   string     `xml:"accesstime"`
	BackupTime   string     `xml:"backuptime"`
	Files        []File      `xml:"contents>file"`
	Directories  []Directory `xml:"contents>directory"`
}

// File is a <file> element: metadata plus the extent list describing where
// its bytes live on the data partition.
type File struct {
	UID          uint64  `xml:"uid,attr"`
	Name         string  `xml:"name"`
	Length       uint64  `xml:"length"`
	ReadOnly     bool    `xml:"readonly,omitempty"`
	CreationTime string  `xml:"creationtime"`
	ChangeTime   string  `xml:"changetime"`
	ModifyTime   string  `xml:"modifytime"`
	AccessTime   string  `xml:"accesstime"`
	BackupTime   string  `xml:"backuptime"`
	Symlink      *string `xml:"symlink,omitempty"`
	Extents      []Extent `xml:"extentinfo>extent"`
}

// Extent is a single contiguous run of a file's bytes on one partition.
type Extent struct {
	Partition  string `xml:"partition"`
	StartBlock uint64 `xml:"startblock"`
	ByteOffset uint64 `xml:"byteoffset"`
	ByteCount  uint64 `xml:"bytecount"`
	FileOffset uint64 `xml:"fileoffset"`
}

// TotalExtentBytes sums ByteCount across f's extents.
func (f File) TotalExtentBytes() uint64 {
	var total uint64
	for _, e := range f.Extents {
		total += e.ByteCount
	}
	return total
}
