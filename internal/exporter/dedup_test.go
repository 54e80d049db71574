package exporter

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestFingerprint(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"id":"c1","updated_at":"2025-01-01T00:00:00Z"}`, "c1@2025-01-01T00:00:00Z"},
		{`{"id":"c1","update_time":1700000000}`, "c1@1700000000"},
		{`{"id":42}`, "42@"},
		{`{"title":"no id"}`, ""},
		{`"not an object"`, ""},
	}
	for _, tt := range tests {
		if got := Fingerprint(gjson.Parse(tt.raw)); got != tt.want {
			t.Errorf("Fingerprint(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSeenSet_FirstWins(t *testing.T) {
	seen := make(seenSet)

	if _, dup := seen.claim("c1@x", "a.json"); dup {
		t.Fatal("first claim should not be a duplicate")
	}
	first, dup := seen.claim("c1@x", "b.json")
	if !dup {
		t.Fatal("second claim should be a duplicate")
	}
	if first != "a.json" {
		t.Errorf("expected first source a.json, got %s", first)
	}
	if _, dup := seen.claim("", "c.json"); dup {
		t.Error("records without fingerprint are never duplicates")
	}
	if _, dup := seen.claim("", "d.json"); dup {
		t.Error("records without fingerprint are never duplicates")
	}
}
