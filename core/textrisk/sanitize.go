package textrisk

import (
	"regexp"
	"strings"
	"unicode"
)

var tagRegex = regexp.MustCompile(`<[^<>]*>`)

// Sanitize strips markup and control characters from value and trims
// surrounding whitespace. It is idempotent: Sanitize(Sanitize(v)) ==
// Sanitize(v), so it can safely run again on already-clean values.
//
// Deliberately separate from Validate: callers choose between rejecting
// suspicious input and silently rewriting it, never both at once.
func Sanitize(value string) string {
	// drop control characters; tabs and newlines are legitimate in free text
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	s := b.String()

	// strip tags until stable; a single pass can uncover nested markup
	// (e.g. "<<script>script>")
	for {
		stripped := tagRegex.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	// no markup survives, so a second Sanitize finds nothing to remove
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")

	return strings.TrimSpace(s)
}

// SanitizeMap sanitizes every value of a submitted form payload.
func SanitizeMap(data map[string]string) map[string]string {
	clean := make(map[string]string, len(data))
	for k, v := range data {
		clean[k] = Sanitize(v)
	}
	return clean
}
