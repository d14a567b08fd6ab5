package locate

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a visible label for comparison: accents stripped,
// lower-cased, whitespace collapsed. "EDITAR  Sólo esta clase" becomes
// "editar solo esta clase".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Contains reports whether label contains phrase after normalization.
func Contains(label, phrase string) bool {
	p := Normalize(phrase)
	return p != "" && strings.Contains(Normalize(label), p)
}
