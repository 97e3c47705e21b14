package shared

import (
	"strings"
	"unicode/utf8"
)

// maxFilenameBytes leaves headroom under common 255-byte filename limits
// for the extension and copy suffixes.
const maxFilenameBytes = 200

// Sanitize strips characters that are unsafe in file and directory names.
// Path separators and reserved punctuation are removed, runs of
// whitespace collapse to a single space, and trailing dots are trimmed.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			continue
		case '\t', '\n', '\r':
			b.WriteRune(' ')
			continue
		}
		if r < 0x20 {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	return strings.TrimRight(cleaned, ". ")
}

// TrackFilename generates the canonical cache filename for a track:
// "<title> - <artist>.<format>", sanitized and truncated to a
// UTF-8-safe byte budget. An empty format means mp3.
func TrackFilename(title, artist, format string) string {
	if format == "" {
		format = "mp3"
	}
	base := Sanitize(title + " - " + artist)
	return TruncateUTF8(base, maxFilenameBytes) + "." + format
}

// TruncateUTF8 truncates s to at most max bytes without splitting a
// multibyte character.
func TruncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimRight(s[:cut], " ")
}
