package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportFileName is written into the output directory after every run.
const ReportFileName = "export_report.txt"

// maxListedFailures caps the failure list in chat summaries.
const maxListedFailures = 10

// Failure describes one conversation that could not be exported.
type Failure struct {
	Index  int // 1-based position across all inputs
	Title  string
	Source string
	Err    string
}

// DocumentResult describes one rendered conversation.
type DocumentResult struct {
	Index          int
	ConversationID string
	UpdatedAt      string
	Title          string
	Path           string
	Policy         string
	Sections       int
}

// Report is the outcome of a run. Total always equals
// Succeeded + Failed + Skipped + Duplicates.
type Report struct {
	RunID      uuid.UUID
	Input      string
	OutputDir  string
	DryRun     bool
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int // exported by an earlier run
	Duplicates int // seen earlier in this run
	Failures   []Failure
	Documents  []DocumentResult
	FileErrors []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// String renders the plain-text report printed to stdout and saved to disk.
func (r *Report) String() string {
	var sb strings.Builder
	sb.WriteString("=== Export Report ===\n")
	fmt.Fprintf(&sb, "Run ID: %s\n", r.RunID)
	fmt.Fprintf(&sb, "Input: %s\n", r.Input)
	fmt.Fprintf(&sb, "Output directory: %s\n", r.OutputDir)
	fmt.Fprintf(&sb, "Conversations: %d\n", r.Total)
	fmt.Fprintf(&sb, "Exported: %d\n", r.Succeeded)
	fmt.Fprintf(&sb, "Failed: %d\n", r.Failed)
	fmt.Fprintf(&sb, "Skipped (already exported): %d\n", r.Skipped)
	fmt.Fprintf(&sb, "Duplicates: %d\n", r.Duplicates)
	if r.DryRun {
		sb.WriteString("Mode: DRY RUN (no files written)\n")
	}
	fmt.Fprintf(&sb, "Finished: %s\n", r.FinishedAt.Format("2006-01-02 15:04:05"))

	if len(r.FileErrors) > 0 {
		sb.WriteString("\nUnreadable inputs:\n")
		for _, e := range r.FileErrors {
			fmt.Fprintf(&sb, "  - %s\n", e)
		}
	}

	if len(r.Failures) > 0 {
		sb.WriteString("\nFailed conversations:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&sb, "  - #%d %q: %s\n", f.Index, f.Title, f.Err)
		}
	}

	return sb.String()
}

// Save writes the report to ReportFileName in dir and returns its path.
func (r *Report) Save(dir string) (string, error) {
	path := filepath.Join(dir, ReportFileName)
	if err := os.WriteFile(path, []byte(r.String()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// FormatSummary formats the report as a Slack mrkdwn message.
func FormatSummary(r *Report) string {
	var sb strings.Builder
	sb.WriteString("*Conversation Export Summary*\n")
	fmt.Fprintf(&sb, "`%s` -> `%s`\n", r.Input, r.OutputDir)
	fmt.Fprintf(&sb, "%d exported, %d failed, %d skipped, %d duplicates (of %d)\n",
		r.Succeeded, r.Failed, r.Skipped, r.Duplicates, r.Total)
	if r.DryRun {
		sb.WriteString("_dry run, nothing written_\n")
	}
	if n := len(r.FileErrors); n > 0 {
		fmt.Fprintf(&sb, "%d unreadable input files\n", n)
	}
	return sb.String()
}

// FormatFailures lists failed conversations for a thread reply. It returns
// "" when nothing failed.
func FormatFailures(r *Report) string {
	if len(r.Failures) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Failed conversations (%d)*\n", len(r.Failures))
	for i, f := range r.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(&sb, "...and %d more, see %s\n", len(r.Failures)-i, ReportFileName)
			break
		}
		fmt.Fprintf(&sb, "  - #%d %s [%s]: %s\n", f.Index, f.Title, filepath.Base(f.Source), f.Err)
	}
	return sb.String()
}
