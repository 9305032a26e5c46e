package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxNameBytes caps a sanitized base name so that the longest suffix added
// to it (".video.mp4.aria2") stays under the common 255-byte NAME_MAX.
const MaxNameBytes = 200

// hostileReplacer drops characters that are invalid in file names on at
// least one supported filesystem.
var hostileReplacer = strings.NewReplacer(
	"/", "",
	"\\", "",
	":", "",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName normalizes name to NFC, strips filesystem-hostile and
// control characters, collapses runs of whitespace, trims the result, and
// caps it at MaxNameBytes on a rune boundary. Tabs and newlines separate
// words. An empty result is returned as-is so callers can choose a fallback.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)
	name = hostileReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r), r == unicode.ReplacementChar:
			return -1
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	// Leading dots would produce hidden files.
	name = strings.TrimLeft(name, ". ")
	return truncateBytes(name, MaxNameBytes)
}

func truncateBytes(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return strings.TrimRight(name[:cut], " ")
}

// FileNameOr sanitizes name and falls back to the first non-empty sanitized
// candidate when nothing usable remains.
func FileNameOr(name string, fallbacks ...string) string {
	if clean := SanitizeFileName(name); clean != "" {
		return clean
	}
	for _, candidate := range fallbacks {
		if clean := SanitizeFileName(candidate); clean != "" {
			return clean
		}
	}
	return "download"
}
