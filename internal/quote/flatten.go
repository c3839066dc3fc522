// internal/quote/flatten.go
//
// Row flattening: nested selections → one record per selected parameter.
//
// Context
//   Pricing staff work row by row, so a TestRow selecting three parameters
//   must become three distinct rows sharing category, sample type, and
//   quantity.  The output ordering is the exact nested traversal order
//   (groups, then rows, then selection-ordered names); the recipient
//   compares the e-mail table and the CSV side by side, so both renderers
//   consume this sequence unchanged.
//
//------------------------------------------------------------------------------

package quote

import (
	"fmt"
	"strings"
)

// FlatRecord is one priceable line item.  Derived, never stored.
type FlatRecord struct {
	Category   string
	SampleType string
	TestName   string
	Quantity   int
}

// otherAnalysisMarker identifies the generic catch-all parameter.  Matching
// is a case-insensitive substring test so catalog wording such as
// "Other Analysis" or "*Any other analysis" all qualify.
const otherAnalysisMarker = "other analysis"

// NeedsSpecification reports whether any selected name is the generic
// "other analysis" placeholder.  The form uses this to reveal the free-text
// specification box; it is a pure function of the selection.
func NeedsSpecification(testNames []string) bool {
	for _, n := range testNames {
		if isOtherAnalysis(n) {
			return true
		}
	}
	return false
}

func isOtherAnalysis(name string) bool {
	return strings.Contains(strings.ToLower(name), otherAnalysisMarker)
}

// effectiveName resolves the display name for one selected parameter.  The
// custom specification is appended only to "other analysis" entries, and
// only when non-empty.
func effectiveName(name, spec string) string {
	if spec != "" && isOtherAnalysis(name) {
		return fmt.Sprintf("%s (%s)", name, spec)
	}
	return name
}

// Flatten expands the validated group structure into flat records, one per
// (group, row, selected name).  It is pure: flattening the same input twice
// yields identical, order-identical output.
func Flatten(groups []SampleGroup) []FlatRecord {
	var out []FlatRecord
	for _, g := range groups {
		for _, row := range g.Tests {
			for _, name := range row.TestNames {
				out = append(out, FlatRecord{
					Category:   g.Category,
					SampleType: row.SampleType,
					TestName:   effectiveName(name, strings.TrimSpace(row.OtherSpecification)),
					Quantity:   row.Quantity,
				})
			}
		}
	}
	return out
}
