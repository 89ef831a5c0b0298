package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldKey returns a caseless, NFC-normalised form of value suitable for matching.
// Surrounding whitespace is dropped and inner runs of whitespace collapse to one space.
func FoldKey(value string) string {
	collapsed := strings.Join(strings.Fields(value), " ")
	if collapsed == "" {
		return ""
	}
	// cases.Caser is stateful, so a fresh one per call keeps FoldKey safe for concurrent use.
	return cases.Fold().String(norm.NFC.String(collapsed))
}

// ContainsFold reports whether needle occurs in haystack ignoring case.
// An empty needle matches everything.
func ContainsFold(haystack, needle string) bool {
	foldedNeedle := FoldKey(needle)
	if foldedNeedle == "" {
		return true
	}
	return strings.Contains(FoldKey(haystack), foldedNeedle)
}
