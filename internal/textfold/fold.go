// Package textfold folds text for case- and diacritic-insensitive matching.
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold returns s decomposed, stripped of combining marks and case folded.
// "Bedienungsanleitung Käffeemaschine" -> "bedienungsanleitung kaffeemaschine".
// "STRAßE" -> "strasse".
func Fold(s string) string {
	if s == "" {
		return ""
	}
	// Transformers keep state, so the chain is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// Key returns the identity key for a user-entered name: folded, trimmed,
// and with internal whitespace collapsed to single spaces.
func Key(s string) string {
	return strings.Join(strings.Fields(Fold(s)), " ")
}

// Contains reports whether needle occurs in haystack after folding both.
// An empty needle matches everything.
func Contains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(Fold(haystack), Fold(needle))
}
