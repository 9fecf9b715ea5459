package skillmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText performs Unicode normalization and trims whitespace.
func NormalizeText(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.TrimSpace(normed)
	// Drop control characters except newlines and tabs.
	normed = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
	return normed
}

// NormalizeKey folds text into the form used for vocabulary lookups:
// NFKC, lower case, single spaces.
func NormalizeKey(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(NormalizeText(text))), " ")
}

// cleanList trims entries and drops the blank ones.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
