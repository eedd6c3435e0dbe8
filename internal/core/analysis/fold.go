package analysis

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldName canonicalises a drug or medication name for comparison.
// Names are NFKC-normalised and Unicode case-folded.
func FoldName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	// A Caser keeps state, so one is created per call.
	return cases.Fold().String(norm.NFKC.String(name))
}

// foldSet folds every name and drops empties.
func foldSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if f := FoldName(n); f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}
