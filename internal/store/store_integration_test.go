//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_RunLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := ExportRun{
		ID:        uuid.New(),
		Input:     "/tmp/integration/conversations.json",
		OutputDir: "/tmp/integration/out",
		StartedAt: time.Now().UTC(),
	}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM export_runs WHERE id = $1", run.ID)
	})

	run.Total, run.Succeeded, run.Failed, run.Skipped, run.Duplicates = 5, 3, 1, 1, 2
	if err := s.CompleteRun(ctx, run); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Total != 5 || got.Succeeded != 3 || got.Failed != 1 || got.Skipped != 1 || got.Duplicates != 2 {
		t.Errorf("unexpected counters: %+v", got)
	}
	if got.FinishedAt == nil {
		t.Error("expected finished_at to be set")
	}

	runs, err := s.RecentRuns(ctx, 50)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	found := false
	for _, r := range runs {
		if r.ID == run.ID {
			found = true
		}
	}
	if !found {
		t.Error("expected run in recent runs")
	}
}

func TestIntegration_CompleteUnknownRun(t *testing.T) {
	s := setupTestStore(t)

	err := s.CompleteRun(context.Background(), ExportRun{ID: uuid.New()})
	if err == nil {
		t.Fatal("expected error completing a run that was never created")
	}
}

func TestIntegration_RecordDocument(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	runID := uuid.New()
	if err := s.CreateRun(ctx, ExportRun{ID: runID, Input: "in", OutputDir: "out", StartedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM export_runs WHERE id = $1", runID)
	})

	doc := ExportedDocument{
		RunID:          runID,
		ConversationID: "conv-integration",
		UpdatedAt:      "2025-03-01T08:01:00Z",
		Title:          "Integration",
		Path:           "out/Integration.md",
		Policy:         "fragment-scan",
		Sections:       4,
	}
	if err := s.RecordDocument(ctx, doc); err != nil {
		t.Fatalf("RecordDocument failed: %v", err)
	}
	// Same revision again is ignored.
	if err := s.RecordDocument(ctx, doc); err != nil {
		t.Fatalf("RecordDocument (repeat) failed: %v", err)
	}

	docs, err := s.DocumentsForRun(ctx, runID)
	if err != nil {
		t.Fatalf("DocumentsForRun failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Sections != 4 || docs[0].Path != "out/Integration.md" {
		t.Errorf("unexpected document: %+v", docs[0])
	}
}

func TestIntegration_RecordDocumentWithoutConversationID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	runID := uuid.New()
	if err := s.CreateRun(ctx, ExportRun{ID: runID, Input: "in", OutputDir: "out", StartedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM export_runs WHERE id = $1", runID)
	})

	for _, path := range []string{"out/First.md", "out/Second.md"} {
		doc := ExportedDocument{RunID: runID, Title: path, Path: path, Policy: "linear-chain", Sections: 1}
		if err := s.RecordDocument(ctx, doc); err != nil {
			t.Fatalf("RecordDocument(%s) failed: %v", path, err)
		}
	}

	docs, err := s.DocumentsForRun(ctx, runID)
	if err != nil {
		t.Fatalf("DocumentsForRun failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents without conversation ids, got %d", len(docs))
	}
	for _, d := range docs {
		if d.ConversationID != "" {
			t.Errorf("expected empty conversation id, got %q", d.ConversationID)
		}
	}
}
