package hermes

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	// SubjectDocumentExported carries one DocumentExported per written document.
	SubjectDocumentExported = "convexport.document.exported"
	// SubjectRunCompleted carries a RunCompleted when an export run finishes.
	SubjectRunCompleted = "convexport.run.completed"
	// SubjectExportRequested triggers an export run in a serving instance.
	SubjectExportRequested = "convexport.export.requested"
)

// DocumentExported is emitted after a conversation has been rendered.
type DocumentExported struct {
	RunID          string `json:"run_id"`
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Path           string `json:"path"`
	Policy         string `json:"policy"`
	Sections       int    `json:"sections"`
	DryRun         bool   `json:"dry_run"`
}

// RunCompleted summarises a finished export run.
type RunCompleted struct {
	RunID      string    `json:"run_id"`
	Input      string    `json:"input"`
	OutputDir  string    `json:"output_dir"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Duplicates int       `json:"duplicates"`
	DryRun     bool      `json:"dry_run"`
	FinishedAt time.Time `json:"finished_at"`
}

// ExportRequest asks a serving instance to export a file or directory.
type ExportRequest struct {
	Input     string `json:"input"`
	OutputDir string `json:"output_dir,omitempty"`
	DryRun    bool   `json:"dry_run,omitempty"`
	Force     bool   `json:"force,omitempty"`
	Repair    bool   `json:"repair,omitempty"`
}

// ParseExportRequest decodes and validates an export request payload.
func ParseExportRequest(data []byte) (*ExportRequest, error) {
	var req ExportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse export request: %w", err)
	}
	req.Input = strings.TrimSpace(req.Input)
	if req.Input == "" {
		return nil, errors.New("export request: input is required")
	}
	return &req, nil
}

// ErrOutsideRoot is returned by Confine for a path that leaves its root.
var ErrOutsideRoot = errors.New("path is outside the allowed root")

// Confine resolves Input and OutputDir against their allowed roots. Relative
// paths are taken relative to the root. An empty root means the working
// directory.
func (r *ExportRequest) Confine(inputRoot, outputRoot string) error {
	in, err := resolveWithin(inputRoot, r.Input)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	r.Input = in

	if r.OutputDir != "" {
		out, err := resolveWithin(outputRoot, r.OutputDir)
		if err != nil {
			return fmt.Errorf("output_dir: %w", err)
		}
		r.OutputDir = out
	}
	return nil
}

func resolveWithin(root, p string) (string, error) {
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(absRoot, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(absRoot, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	return p, nil
}
