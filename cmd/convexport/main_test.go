package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/convexport/internal/config"
)

const exportFixture = `[{
	"id": "c1",
	"title": "Greeting",
	"updated_at": "2025-03-01T08:01:00Z",
	"mapping": {
		"1": {"id": "1", "parent": "root", "children": ["2"], "message": {"fragments": [{"type": "REQUEST", "content": "Hello"}]}},
		"2": {"id": "2", "parent": "1", "children": [], "message": {"fragments": [{"type": "RESPONSE", "content": "Hi there"}]}}
	}
}]`

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"CONVEXPORT_CONFIG", "CONVEXPORT_OUTPUT_DIR", "CONVEXPORT_INPUT", "DATABASE_URL", "NATS_URL", "SLACK_BOT_TOKEN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"convexport", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "conversations.json")
	if err := os.WriteFile(input, []byte(exportFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")

	out, err := runApp(t, "export", "--offline", "-o", outDir, input)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(out, "Exported: 1") {
		t.Errorf("expected report on stdout, got:\n%s", out)
	}

	doc, err := os.ReadFile(filepath.Join(outDir, "Greeting.md"))
	if err != nil {
		t.Fatalf("document not written: %v", err)
	}
	if !strings.Contains(string(doc), "Hi there") {
		t.Errorf("unexpected document:\n%s", doc)
	}
}

func TestExportCommand_BadInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "conversations.json")
	if err := os.WriteFile(input, []byte(`{"not": "an array"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runApp(t, "export", "--offline", "-o", filepath.Join(dir, "out"), input); err == nil {
		t.Fatal("expected error for non-array input")
	}
}

func TestInspectCommand(t *testing.T) {
	input := filepath.Join(t.TempDir(), "conversations.json")
	if err := os.WriteFile(input, []byte(exportFixture), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runApp(t, "inspect", "-n", "1", input)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(out, "policy:  fragment-scan") || !strings.Contains(out, "First 1 nodes:") {
		t.Errorf("unexpected inspect output:\n%s", out)
	}

	if _, err := runApp(t, "inspect"); err == nil {
		t.Error("expected error without a file argument")
	}
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogging("warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected JSON warn line, got: %s", out)
	}
}

func TestExportRoots(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "conversations.json")
	if err := os.WriteFile(file, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	in, out := exportRoots(config.Config{Input: file, OutputDir: "Conversations"})
	if in != dir || out != "Conversations" {
		t.Errorf("file input: got roots %q, %q", in, out)
	}

	in, _ = exportRoots(config.Config{Input: dir})
	if in != dir {
		t.Errorf("directory input: expected root %q, got %q", dir, in)
	}

	in, _ = exportRoots(config.Config{Input: "conversations.json"})
	if in != "." {
		t.Errorf("missing relative input: expected root \".\", got %q", in)
	}
}
