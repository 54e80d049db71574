package render

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the display layout for every timestamp in a document.
const TimeLayout = "2006-01-02 15:04:05"

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FormatTimestamp renders an ISO-8601 or unix-seconds timestamp. A trailing
// "Z" is read as +00:00. Anything unparseable is returned unchanged.
func FormatTimestamp(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}

	if secs, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(secs) && !math.IsInf(secs, 0) {
		whole := int64(secs)
		nsec := int64((secs - float64(whole)) * 1e9)
		return time.Unix(whole, nsec).UTC().Format(TimeLayout)
	}

	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout)
		}
	}
	return raw
}

// Anchor turns a node id into an in-document link target: every character
// outside [A-Za-z0-9_-] becomes "-".
func Anchor(id string) string {
	var sb strings.Builder
	sb.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

var extLanguages = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".mjs":   "javascript",
	".jsx":   "jsx",
	".ts":    "typescript",
	".tsx":   "tsx",
	".go":    "go",
	".java":  "java",
	".kt":    "kotlin",
	".scala": "scala",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".dart":  "dart",
	".lua":   "lua",
	".pl":    "perl",
	".r":     "r",
	".sh":    "bash",
	".bash":  "bash",
	".zsh":   "bash",
	".ps1":   "powershell",
	".sql":   "sql",
	".html":  "html",
	".htm":   "html",
	".css":   "css",
	".scss":  "scss",
	".vue":   "vue",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".ini":   "ini",
	".xml":   "xml",
	".md":    "markdown",
	".csv":   "csv",
	".tex":   "latex",
	".txt":   "text",
}

// LanguageFor maps a file name to a code fence language tag, case
// insensitively. Unknown extensions map to "text".
func LanguageFor(fileName string) string {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(fileName))]; ok {
		return lang
	}
	return "text"
}

// fenceFor returns a backtick fence longer than any run inside body.
func fenceFor(body string) string {
	longest, run := 0, 0
	for _, r := range body {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}
