package exporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Weekly planning", "Weekly planning"},
		{"slash colon question", "Hi/There:?", "HiThere"},
		{"illegal chars removed", `a<b>c:d"e/f\g|h?i*j`, "abcdefghij"},
		{"control chars removed", "tab\there\nnewline", "tabherenewline"},
		{"spaces and dots trimmed", "  ..notes..  ", "notes"},
		{"empty falls back", "", "conversation_20250301_080405"},
		{"only illegal falls back", `<>:"/\|?*`, "conversation_20250301_080405"},
		{"nfc", "cafe\u0301", "caf\u00e9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.title, now); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename_CapsAtFiftyRunes(t *testing.T) {
	title := strings.Repeat("é", 80)
	got := SanitizeFilename(title, time.Now())
	if n := len([]rune(got)); n != 50 {
		t.Errorf("expected 50 runes, got %d", n)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	taken := make(map[string]bool)

	first := UniquePath(dir, "Chat", ".md", taken)
	if first != filepath.Join(dir, "Chat.md") {
		t.Errorf("expected Chat.md, got %s", first)
	}

	second := UniquePath(dir, "Chat", ".md", taken)
	if second != filepath.Join(dir, "Chat_1.md") {
		t.Errorf("expected Chat_1.md, got %s", second)
	}

	// A file left on disk by someone else is also avoided.
	if err := os.WriteFile(filepath.Join(dir, "Other.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	third := UniquePath(dir, "Other", ".md", taken)
	if third != filepath.Join(dir, "Other_1.md") {
		t.Errorf("expected Other_1.md, got %s", third)
	}
	if !taken[third] {
		t.Error("expected chosen path to be recorded")
	}
}
