package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowers the text and strips diacritics so keyword matching is
// insensitive to accents ("informática" matches "informatica").
func Normalize(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return ""
	}

	stripped, _, err := transform.String(accentStripper, lowered)
	if err != nil {
		return lowered
	}
	return stripped
}
