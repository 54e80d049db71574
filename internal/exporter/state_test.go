package exporter

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunState_NewAndSave(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "nested", "state.json")

	s, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(s.Exported) != 0 {
		t.Fatalf("expected empty state, got %d entries", len(s.Exported))
	}

	s.MarkExported("c1@2025-01-01", "/out/a.md")
	s.MarkExported("c2@2025-01-02", "/out/b.md")
	s.Runs = 3

	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("state file not created: %v", err)
	}

	loaded, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Runs != 3 {
		t.Errorf("expected runs 3, got %d", loaded.Runs)
	}
	if loaded.Exported["c2@2025-01-02"] != "/out/b.md" {
		t.Errorf("expected path for c2, got %q", loaded.Exported["c2@2025-01-02"])
	}
	if loaded.LastProcessedAt.IsZero() {
		t.Error("expected last_processed_at to be set")
	}
}

func TestRunState_IsExported(t *testing.T) {
	s := &RunState{}

	if s.IsExported("c1@x") {
		t.Error("c1 should not be exported yet")
	}

	s.MarkExported("c1@x", "/out/c1.md")

	if !s.IsExported("c1@x") {
		t.Error("c1 should be exported")
	}
	if s.IsExported("c2@x") {
		t.Error("c2 should not be exported")
	}

	s.MarkExported("", "/out/none.md")
	if s.IsExported("") {
		t.Error("empty fingerprint should never be exported")
	}
}

func TestRunState_AddError(t *testing.T) {
	s := &RunState{}
	s.AddError("something went wrong")
	s.AddError("another error")

	if len(s.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(s.Errors))
	}
}

func TestLoadState_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadState(path); err == nil {
		t.Fatal("expected error for corrupt state file")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/exports"); got != filepath.Join(home, "exports") {
		t.Errorf("expected %s, got %s", filepath.Join(home, "exports"), got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path changed: %s", got)
	}
}
