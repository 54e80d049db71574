package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/MikeSquared-Agency/convexport/internal/conversation"
	"github.com/MikeSquared-Agency/convexport/internal/flow"
	"github.com/MikeSquared-Agency/convexport/internal/hermes"
	"github.com/MikeSquared-Agency/convexport/internal/render"
	"github.com/MikeSquared-Agency/convexport/internal/store"
)

// Config holds the export command configuration.
type Config struct {
	Input     string // export file, or a directory searched for *.json / *.jsonl
	OutputDir string
	StatePath string // default: <OutputDir>/.convexport-state.json
	DryRun    bool   // render without writing anything
	Force     bool   // re-export conversations recorded in the run state
	Repair    bool   // run damaged JSON through jsonrepair
}

// Catalog records runs and documents. *store.Store satisfies it.
type Catalog interface {
	CreateRun(ctx context.Context, run store.ExportRun) error
	RecordDocument(ctx context.Context, doc store.ExportedDocument) error
	CompleteRun(ctx context.Context, run store.ExportRun) error
}

// Publisher emits export events. *hermes.Client satisfies it.
type Publisher interface {
	Publish(subject string, data any) error
}

// Notifier posts run summaries. *slack.Poster satisfies it.
type Notifier interface {
	PostSummary(ctx context.Context, text string) (string, error)
	PostThread(ctx context.Context, threadTS, text string) error
}

// Option configures optional Runner integrations.
type Option func(*Runner)

func WithCatalog(c Catalog) Option     { return func(r *Runner) { r.catalog = c } }
func WithPublisher(p Publisher) Option { return func(r *Runner) { r.events = p } }
func WithNotifier(n Notifier) Option   { return func(r *Runner) { r.notifier = n } }

// WithClock replaces time.Now for file name fallbacks, document footers and
// the report.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// Runner orchestrates an export run.
type Runner struct {
	cfg      Config
	catalog  Catalog
	events   Publisher
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner creates an export runner.
func NewRunner(cfg Config, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) statePath() string {
	if r.cfg.StatePath != "" {
		return r.cfg.StatePath
	}
	return filepath.Join(r.cfg.OutputDir, stateFileName)
}

// Run exports every conversation found under the configured input, one at a
// time. A failing conversation is recorded in the report and the run goes
// on. Run returns an error without a report only when no input could be
// read at all. When ctx is cancelled the state and report are saved and the
// partial report is returned together with ctx.Err().
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	files, err := discoverFiles(r.cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("discover files: no *.json or *.jsonl under %s", r.cfg.Input)
	}

	outputDir := expandHome(r.cfg.OutputDir)
	if !r.cfg.DryRun {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	state, err := LoadState(r.statePath())
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	state.Runs++

	rep := &Report{
		RunID:     uuid.New(),
		Input:     r.cfg.Input,
		OutputDir: outputDir,
		DryRun:    r.cfg.DryRun,
		StartedAt: r.now().UTC(),
	}

	r.logger.Info("export started",
		"run_id", rep.RunID,
		"files", len(files),
		"output_dir", outputDir,
		"dry_run", r.cfg.DryRun,
	)
	r.startRun(ctx, rep)

	seen := make(seenSet)
	taken := make(map[string]bool)
	readable := 0
	index := 0

	for _, path := range files {
		doc, err := conversation.DecodeFile(path, conversation.DecodeOptions{Repair: r.cfg.Repair})
		if err != nil {
			r.logger.Warn("failed to decode export file", "path", path, "error", err)
			rep.FileErrors = append(rep.FileErrors, fmt.Sprintf("%s: %v", path, err))
			state.AddError(fmt.Sprintf("decode %s: %v", path, err))
			continue
		}
		readable++
		if doc.Skipped > 0 {
			r.logger.Warn("skipped malformed lines", "path", path, "lines", doc.Skipped)
		}
		if doc.Repaired {
			r.logger.Info("repaired damaged JSON", "path", path)
		}

		r.logger.Info("processing file", "path", path, "conversations", len(doc.Records))

		for _, raw := range doc.Records {
			if ctx.Err() != nil {
				r.logger.Info("export interrupted, saving state")
				r.finish(context.WithoutCancel(ctx), rep, state)
				return rep, ctx.Err()
			}

			index++
			rep.Total++

			fp := Fingerprint(raw)
			if first, dup := seen.claim(fp, path); dup {
				r.logger.Info("skipping duplicate conversation", "index", index, "fingerprint", fp, "first_seen", first)
				rep.Duplicates++
				continue
			}
			if !r.cfg.Force && state.IsExported(fp) {
				rep.Skipped++
				continue
			}

			res, err := r.exportOne(index, raw, outputDir, state.Exported[fp], taken)
			if err != nil {
				title := titleOf(raw, index)
				r.logger.Error("conversation export failed", "index", index, "title", title, "error", err)
				rep.Failed++
				rep.Failures = append(rep.Failures, Failure{Index: index, Title: title, Source: path, Err: err.Error()})
				state.AddError(fmt.Sprintf("export #%d %q: %v", index, title, err))
				continue
			}

			rep.Succeeded++
			rep.Documents = append(rep.Documents, res)
			if !r.cfg.DryRun {
				state.MarkExported(fp, res.Path)
			}

			r.logger.Info("conversation exported",
				"index", index,
				"path", res.Path,
				"policy", res.Policy,
				"sections", res.Sections,
				"dry_run", r.cfg.DryRun,
			)
			r.recordDocument(ctx, rep, res)
		}
	}

	if readable == 0 {
		return nil, fmt.Errorf("no readable input: %s", strings.Join(rep.FileErrors, "; "))
	}

	r.finish(ctx, rep, state)

	r.logger.Info("export complete",
		"run_id", rep.RunID,
		"total", rep.Total,
		"exported", rep.Succeeded,
		"failed", rep.Failed,
		"skipped", rep.Skipped,
		"duplicates", rep.Duplicates,
		"dry_run", r.cfg.DryRun,
	)
	return rep, nil
}

// exportOne builds, renders and writes a single conversation. A forced
// re-export overwrites prev, the file written by an earlier run, when it
// lives in dir. Panics from any step are returned as errors.
func (r *Runner) exportOne(index int, raw gjson.Result, dir, prev string, taken map[string]bool) (res DocumentResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	rec, err := conversation.ParseRecord(raw)
	if err != nil {
		return res, err
	}

	log := flow.SlogLogger(r.logger, "conversation_id", rec.ID, "index", index)
	f := flow.ForRecord(rec, log).Build(rec)
	renderer := render.Renderer{Now: r.now, Logger: log}
	out := renderer.Render(rec, f)

	path := prev
	if path == "" || filepath.Dir(path) != filepath.Clean(dir) || taken[path] {
		path = UniquePath(dir, SanitizeFilename(rec.Title, r.now()), ".md", taken)
	} else {
		taken[path] = true
	}
	if !r.cfg.DryRun {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return res, fmt.Errorf("write: %w", err)
		}
	}

	return DocumentResult{
		Index:          index,
		ConversationID: rec.ID,
		UpdatedAt:      rec.UpdatedAt,
		Title:          rec.Title,
		Path:           path,
		Policy:         f.Policy,
		Sections:       render.Sections(f),
	}, nil
}

// finish stamps the report, persists state and report, and fans the result
// out to the optional integrations.
func (r *Runner) finish(ctx context.Context, rep *Report, state *RunState) {
	rep.FinishedAt = r.now().UTC()

	if !r.cfg.DryRun {
		if err := state.Save(); err != nil {
			r.logger.Warn("failed to save state", "path", r.statePath(), "error", err)
		}
		if path, err := rep.Save(rep.OutputDir); err != nil {
			r.logger.Warn("failed to save report", "error", err)
		} else {
			r.logger.Info("report saved", "path", path)
		}
	}

	r.completeRun(ctx, rep)
	r.publish(hermes.SubjectRunCompleted, hermes.RunCompleted{
		RunID:      rep.RunID.String(),
		Input:      rep.Input,
		OutputDir:  rep.OutputDir,
		Total:      rep.Total,
		Succeeded:  rep.Succeeded,
		Failed:     rep.Failed,
		Skipped:    rep.Skipped,
		Duplicates: rep.Duplicates,
		DryRun:     rep.DryRun,
		FinishedAt: rep.FinishedAt,
	})
	r.postSummary(ctx, rep)
}

func (r *Runner) startRun(ctx context.Context, rep *Report) {
	if r.catalog == nil {
		return
	}
	err := r.catalog.CreateRun(ctx, store.ExportRun{
		ID:        rep.RunID,
		Input:     rep.Input,
		OutputDir: rep.OutputDir,
		DryRun:    rep.DryRun,
		StartedAt: rep.StartedAt,
	})
	if err != nil {
		r.logger.Warn("failed to record run start", "run_id", rep.RunID, "error", err)
	}
}

func (r *Runner) recordDocument(ctx context.Context, rep *Report, res DocumentResult) {
	r.publish(hermes.SubjectDocumentExported, hermes.DocumentExported{
		RunID:          rep.RunID.String(),
		ConversationID: res.ConversationID,
		Title:          res.Title,
		Path:           res.Path,
		Policy:         res.Policy,
		Sections:       res.Sections,
		DryRun:         rep.DryRun,
	})

	if r.catalog == nil || rep.DryRun {
		return
	}
	err := r.catalog.RecordDocument(ctx, store.ExportedDocument{
		ID:             uuid.New(),
		RunID:          rep.RunID,
		ConversationID: res.ConversationID,
		UpdatedAt:      res.UpdatedAt,
		Title:          res.Title,
		Path:           res.Path,
		Policy:         res.Policy,
		Sections:       res.Sections,
	})
	if err != nil {
		r.logger.Warn("failed to record document", "path", res.Path, "error", err)
	}
}

func (r *Runner) completeRun(ctx context.Context, rep *Report) {
	if r.catalog == nil {
		return
	}
	finished := rep.FinishedAt
	err := r.catalog.CompleteRun(ctx, store.ExportRun{
		ID:         rep.RunID,
		Total:      rep.Total,
		Succeeded:  rep.Succeeded,
		Failed:     rep.Failed,
		Skipped:    rep.Skipped,
		Duplicates: rep.Duplicates,
		FinishedAt: &finished,
	})
	if err != nil {
		r.logger.Warn("failed to record run completion", "run_id", rep.RunID, "error", err)
	}
}

func (r *Runner) publish(subject string, evt any) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(subject, evt); err != nil {
		r.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

// postSummary posts the run summary to Slack, with failures as a thread
// reply. Without a notifier the summary is logged instead.
func (r *Runner) postSummary(ctx context.Context, rep *Report) {
	text := FormatSummary(rep)
	if r.notifier == nil {
		r.logger.Debug("export summary (no Slack configured)", "summary", text)
		return
	}

	ts, err := r.notifier.PostSummary(ctx, text)
	if err != nil {
		r.logger.Warn("failed to post summary to Slack, logging instead", "error", err, "summary", text)
		return
	}
	if failures := FormatFailures(rep); failures != "" {
		if err := r.notifier.PostThread(ctx, ts, failures); err != nil {
			r.logger.Warn("failed to post failure list to Slack", "error", err)
		}
	}
}

// titleOf reads a title straight from the raw record so that failures in
// ParseRecord still get a readable label.
func titleOf(raw gjson.Result, index int) string {
	if t := strings.TrimSpace(raw.Get("title").String()); t != "" {
		return t
	}
	return fmt.Sprintf("Conversation %d", index)
}

func discoverFiles(input string) ([]string, error) {
	root := expandHome(input)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("input not found: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		hidden := strings.HasPrefix(info.Name(), ".")
		if info.IsDir() {
			if hidden && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".jsonl":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
