package ltfsindex

import (
	"encoding/xml"

	"github.com/RoseOO/ltfsgo/internal/scsierr"
)

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// Serialize marshals idx back to the canonical LTFS index XML form, with a
// leading XML declaration, suitable for writing to the index partition.
func Serialize(idx *Index) ([]byte, error) {
	body, err := xml.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, scsierr.Wrap(scsierr.Parse, err, "serialize LTFS index")
	}
	out := make([]byte, 0, len(xmlDeclaration)+len(body)+1)
	out = append(out, []byte(xmlDeclaration)...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}
