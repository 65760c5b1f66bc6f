package textutil

import (
	"regexp"
	"strings"
)

const byteOrderMark = "\ufeff"

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeHeader strips the BOM artifact and surrounding whitespace that
// upstream CSV writers leave on column names.
func NormalizeHeader(name string) string {
	name = strings.TrimPrefix(name, byteOrderMark)
	return strings.TrimSpace(name)
}

// FoldSearch lowercases s and turns non-breaking spaces into regular ones, it
// is applied to both sides of every substring match.
func FoldSearch(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.ToLower(s)
}

// NormalizeName collapses a name into a form suitable for fuzzy comparisons.
func NormalizeName(name string) string {
	name = NormalizeHeader(name)
	name = strings.ToLower(name)
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}
