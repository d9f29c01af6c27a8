package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	disallowedRegex = regexp.MustCompile(`[^a-zA-Z0-9 -]`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Normalize reduces s to letters, digits, spaces and hyphens, collapsing runs of whitespace.
//
// Accented Latin letters lose their combining marks first so "Señor" becomes "Senor"
// instead of "Se or". Case is preserved; the result is safe to use as a catalog query.
func Normalize(s string) string {
	s = stripMarks(s)
	s = disallowedRegex.ReplaceAllString(s, " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SearchQuery builds the free-text catalog query from an item name and an artist.
func SearchQuery(item, artist string) string {
	return Normalize(item + " " + artist)
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// matchForm returns the case-folded form used by the matcher.
//
// Text written entirely outside the Latin alphabet normalizes to nothing, so the raw
// case-folded string is kept in that case.
func matchForm(s string) string {
	if n := Normalize(s); n != "" {
		return strings.ToLower(n)
	}
	return strings.ToLower(strings.TrimSpace(s))
}
