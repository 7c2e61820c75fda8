package dedupe

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold NFD-decomposes s and discards every character whose Unicode general
// category is Mn (non-spacing combining mark), e.g. "Miéville" -> "Mieville".
// Non-BMP characters without a decomposition pass through untouched.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	decomposed := norm.NFD.String(s)
	out, _, err := transform.String(runes.Remove(runes.In(unicode.Mn)), decomposed)
	if err != nil {
		return decomposed
	}
	return out
}
