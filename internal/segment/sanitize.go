package segment

import (
	"strings"
	"unicode/utf8"
)

// Sanitize normalizes text destined for whole-transcript fields: replacement
// and zero-width/directional characters are removed, invalid byte sequences
// are dropped, and leading/trailing whitespace is stripped. It never fails;
// the worst case is an empty string.
func Sanitize(s string) string {
	return strings.TrimSpace(cleanUnicode(s))
}

// SanitizeToken normalizes provider token text WITHOUT trimming boundary
// whitespace. Token strings encode their own word spacing (e.g. " மே", " ம")
// and trimming would corrupt word boundaries in scripts that are not
// space-delimited. Use Sanitize for anything that is not raw token text.
func SanitizeToken(s string) string {
	return cleanUnicode(s)
}

// cleanUnicode drops U+FFFD, zero-width and directional control characters,
// and any bytes that do not decode as valid UTF-8. Decoding is permissive:
// undecodable bytes are skipped rather than surfaced as an error.
func cleanUnicode(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			// Invalid byte sequence; skip the offending byte.
			i++
			continue
		}
		i += size
		if dropRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// dropRune reports whether r is stripped during sanitization.
func dropRune(r rune) bool {
	switch {
	case r == '\uFFFD':
		return true
	case r >= '\u200B' && r <= '\u200F': // zero-width spaces and marks
		return true
	case r >= '\u202A' && r <= '\u202E': // directional embedding/override
		return true
	case r >= '\u2060' && r <= '\u206F': // word joiner and invisible operators
		return true
	case r == '\uFEFF': // byte order mark
		return true
	}
	return false
}
