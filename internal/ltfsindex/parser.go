package ltfsindex

import (
	"encoding/xml"
	"strings"

	"github.com/RoseOO/ltfsgo/internal/scsierr"
)

// Parse extracts, unmarshals, and validates an LTFS index from raw XML
// content that may also carry an <ltfslabel> section ahead of the index, as
// schema-text copies read off the data partition sometimes do. Callers that
// want the full diagnostics report (data size, warnings included) rather
// than just an error listing the hard failures should use ParseDiagnostics
// instead.
func Parse(content string) (*Index, error) {
	idx, _, err := ParseDiagnostics(content)
	return idx, err
}

// ParseDiagnostics parses content the same way Parse does, but returns the
// full Diagnostics report alongside the index: data_size is the byte length
// of the extracted <ltfsindex> section, matching what a caller inspecting
// the raw schema text off tape would measure.
func ParseDiagnostics(content string) (*Index, Diagnostics, error) {
	section, err := extractIndexSection(content)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	if err := validateXMLStructure(section); err != nil {
		return nil, Diagnostics{}, err
	}

	var idx Index
	if err := xml.Unmarshal([]byte(section), &idx); err != nil {
		return nil, Diagnostics{}, scsierr.Wrapf(scsierr.Parse, err, "parse LTFS index XML (%d bytes)", len(section))
	}

	diag := Validate(&idx)
	diag.DataSize = len(strings.TrimPrefix(section, xmlDeclaration))
	if !diag.IsValid {
		return nil, diag, scsierr.New(scsierr.Verification, strings.Join(diag.Errors, "; "))
	}

	return &idx, diag, nil
}

// extractIndexSection isolates the <ltfsindex>...</ltfsindex> region from a
// larger XML document, skipping any preceding <ltfslabel> block, and
// prepends an XML declaration if the extracted section lacks one.
func extractIndexSection(content string) (string, error) {
	start := strings.Index(content, "<ltfsindex")
	if start < 0 {
		return "", scsierr.New(scsierr.Parse, "no LTFS index section found in XML content")
	}

	end := strings.Index(content, "</ltfsindex>")
	if end < 0 {
		return "", scsierr.New(scsierr.Parse, "LTFS index section is not closed")
	}
	end += len("</ltfsindex>")

	section := content[start:end]
	if !strings.HasPrefix(strings.TrimSpace(section), "<?xml") {
		section = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" + section
	}
	return section, nil
}
