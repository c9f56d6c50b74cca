package tts

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportText(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		data   []byte
		want   string
		wantOK bool
	}{
		{"plain", "a.txt", []byte("Hello world.\nSecond line."), "Hello world.\nSecond line.", true},
		{"bom stripped", "b.txt", []byte("\xef\xbb\xbfHello"), "Hello", true},
		{"empty", "c.txt", nil, "", false},
		{"bom only", "d.txt", []byte("\xef\xbb\xbf"), "", false},
		{"latin1", "e.txt", []byte("caf\xe9"), "", false},
		{"binary", "f.bin", []byte{0xff, 0xfe, 0x00, 0x01}, "", false},
		{"markdown", "g.md", []byte("# Title\n\nSome *bold* text.\n\n```go\nfmt.Println()\n```\n"), "Title\n\nSome bold text.", true},
		{"markdown only code", "h.md", []byte("```\ncode\n```\n"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.data)
			got, ok := ImportText(path)
			if ok != tt.wantOK {
				t.Fatalf("ImportText() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ImportText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImportTextMissingFile(t *testing.T) {
	if _, ok := ImportText(filepath.Join(t.TempDir(), "nope.txt")); ok {
		t.Error("missing file should not import")
	}
}

func TestImportTextUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read anything")
	}
	path := writeFile(t, "secret.txt", []byte("hidden"))
	if err := os.Chmod(path, 0o000); err != nil {
		t.Fatal(err)
	}
	if _, ok := ImportText(path); ok {
		t.Error("unreadable file should not import")
	}
}

func TestMarkdownToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"link keeps label", "See [the docs](https://example.com) now.", "See the docs now."},
		{"autolink dropped", "Visit <https://example.com> today.", "Visit  today."},
		{"code span kept", "Run `make` first.", "Run make first."},
		{"list", "- one\n- two\n", "one\n\ntwo"},
		{"soft break", "line one\nline two", "line one line two"},
		{"html dropped", "<div>x</div>\n\nAfter", "After"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarkdownToText(tt.in); got != tt.want {
				t.Errorf("MarkdownToText() = %q, want %q", got, tt.want)
			}
		})
	}
}
