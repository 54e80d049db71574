package exporter

import (
	"github.com/tidwall/gjson"
)

// Fingerprint identifies a conversation revision across export files: its id
// plus its last update time. Records without an id have no fingerprint and
// are never treated as duplicates.
func Fingerprint(raw gjson.Result) string {
	id := raw.Get("id").String()
	if id == "" {
		return ""
	}
	updated := raw.Get("updated_at")
	if !updated.Exists() {
		updated = raw.Get("update_time")
	}
	return id + "@" + updated.String()
}

// seenSet remembers which input first carried each fingerprint. The same
// conversation often appears in several overlapping exports; the first one
// wins.
type seenSet map[string]string

// claim records fp for source. It reports the earlier source and true when
// fp was already claimed.
func (s seenSet) claim(fp, source string) (string, bool) {
	if fp == "" {
		return "", false
	}
	if first, ok := s[fp]; ok {
		return first, true
	}
	s[fp] = source
	return "", false
}
