package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxTitleRunes caps the length of a sanitized title.
const maxTitleRunes = 50

const illegalFilenameChars = `<>:"/\|?*`

// SanitizeFilename turns a conversation title into a file name stem. Illegal
// and control characters are removed, not replaced. An empty result falls
// back to a timestamped name.
func SanitizeFilename(title string, now time.Time) string {
	var sb strings.Builder
	for _, r := range norm.NFC.String(title) {
		if strings.ContainsRune(illegalFilenameChars, r) || unicode.IsControl(r) {
			continue
		}
		sb.WriteRune(r)
	}

	s := strings.Trim(strings.TrimSpace(sb.String()), ".")
	if runes := []rune(s); len(runes) > maxTitleRunes {
		s = string(runes[:maxTitleRunes])
	}
	if s == "" {
		s = "conversation_" + now.Format("20060102_150405")
	}
	return s
}

// UniquePath returns dir/base+ext, or dir/base_N+ext for the first N that is
// neither on disk nor already handed out in this run. The chosen path is
// added to taken.
func UniquePath(dir, base, ext string, taken map[string]bool) string {
	path := filepath.Join(dir, base+ext)
	for i := 1; taken[path] || exists(path); i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
	taken[path] = true
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
