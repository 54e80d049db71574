package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExportRun is one row of export_runs.
type ExportRun struct {
	ID         uuid.UUID
	Input      string
	OutputDir  string
	DryRun     bool
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	Duplicates int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// CreateRun inserts a run at its start.
func (s *Store) CreateRun(ctx context.Context, run ExportRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO export_runs (id, input, output_dir, dry_run, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Input, run.OutputDir, run.DryRun, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert export run: %w", err)
	}
	return nil
}

// CompleteRun stores the final counters of a run.
func (s *Store) CompleteRun(ctx context.Context, run ExportRun) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE export_runs
		SET total = $2, succeeded = $3, failed = $4, skipped = $5, duplicates = $6, finished_at = $7
		WHERE id = $1`,
		run.ID, run.Total, run.Succeeded, run.Failed, run.Skipped, run.Duplicates, finished,
	)
	if err != nil {
		return fmt.Errorf("complete export run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete export run: run %s not found", run.ID)
	}
	return nil
}

// GetRun fetches a run by ID.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*ExportRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, input, output_dir, dry_run, total, succeeded, failed, skipped, duplicates, started_at, finished_at
		FROM export_runs WHERE id = $1`, id)

	var r ExportRun
	err := row.Scan(&r.ID, &r.Input, &r.OutputDir, &r.DryRun, &r.Total, &r.Succeeded, &r.Failed, &r.Skipped, &r.Duplicates, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]ExportRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, input, output_dir, dry_run, total, succeeded, failed, skipped, duplicates, started_at, finished_at
		FROM export_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query export runs: %w", err)
	}
	defer rows.Close()

	var runs []ExportRun
	for rows.Next() {
		var r ExportRun
		if err := rows.Scan(&r.ID, &r.Input, &r.OutputDir, &r.DryRun, &r.Total, &r.Succeeded, &r.Failed, &r.Skipped, &r.Duplicates, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan export run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
