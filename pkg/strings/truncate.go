package strings

import (
	"strings"
)

// DefaultCellMaxLen is the maximum width of a free-text cell in table output.
const DefaultCellMaxLen = 60

// DefaultExcerptLen is the maximum length of a response body quoted in an error.
const DefaultExcerptLen = 200

// minTruncateLen leaves room for at least one character plus "...".
const minTruncateLen = 4

// Truncate collapses all whitespace in s to single spaces and shortens the
// result to maxLen runes, ending in "..." when something was cut.
// maxLen values below 4 are treated as 4.
func Truncate(s string, maxLen int) string {
	if maxLen < minTruncateLen {
		maxLen = minTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// Excerpt returns a single-line, length-limited quote of an HTTP body for
// error messages. Empty bodies yield "<empty>".
func Excerpt(body []byte) string {
	s := Truncate(string(body), DefaultExcerptLen)
	if s == "" {
		return "<empty>"
	}
	return s
}
