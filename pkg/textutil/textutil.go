// Package textutil holds the text cleanup helpers shared by collectors,
// the clustering pipeline and the enrichment step.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// SafeText trims s and collapses every whitespace run into one space.
func SafeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Lower composes s to NFC and case-folds it without locale-specific rules.
// Decomposed accents would otherwise split words at the combining mark. A
// Caser keeps state, so one is built per call.
func Lower(s string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

// NormKey builds the comparison key used for duplicate detection: lower case,
// letters of any script (accents kept), digits and hyphens, single spaces.
func NormKey(s string) string {
	s = Lower(SafeText(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return SafeText(b.String())
}
