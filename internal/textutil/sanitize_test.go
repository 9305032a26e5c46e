package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Plain Title", "Plain Title"},
		{"  padded  ", "padded"},
		{`a/b\c:d*e?f"g<h>i|j`, "abcdefghij"},
		{"tab\there\nnewline", "tab here newline"},
		{"line\r\nbreak", "line break"},
		{"bell\x07char", "bellchar"},
		{"multiple   spaces", "multiple spaces"},
		{"...hidden", "hidden"},
		{"Café", "Café"},
		{"???", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFileNameOr(t *testing.T) {
	if got := FileNameOr("Title: Part 1", "abc"); got != "Title Part 1" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := FileNameOr("|||", "", "dQw4w9WgXcQ"); got != "dQw4w9WgXcQ" {
		t.Fatalf("expected id fallback, got %q", got)
	}
	if got := FileNameOr(""); got != "download" {
		t.Fatalf("expected default fallback, got %q", got)
	}
}

func TestSanitizeFileNameCapsLength(t *testing.T) {
	long := strings.Repeat("é", 150) // 300 bytes
	got := SanitizeFileName(long)
	if len(got) > MaxNameBytes {
		t.Fatalf("expected at most %d bytes, got %d", MaxNameBytes, len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	if got != strings.Repeat("é", 100) {
		t.Fatalf("unexpected truncation %q", got)
	}

	// 199 ASCII bytes then a two-byte rune straddling the limit.
	straddle := strings.Repeat("a", 199) + "é" + "tail"
	if got := SanitizeFileName(straddle); got != strings.Repeat("a", 199) {
		t.Fatalf("expected cut before the straddling rune, got %d bytes", len(got))
	}

	if got := SanitizeFileName(strings.Repeat("a", 199) + " bc"); got != strings.Repeat("a", 199) {
		t.Fatalf("expected trailing space trimmed after cut, got %q", got[190:])
	}
}

func TestFileNameOrCapsLongTitles(t *testing.T) {
	got := FileNameOr(strings.Repeat("word ", 60), "id")
	if len(got)+len(".video.mp4.aria2") > 255 {
		t.Fatalf("name %d bytes would exceed NAME_MAX with suffixes", len(got))
	}
}
