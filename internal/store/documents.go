package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ExportedDocument is one row of exported_documents.
type ExportedDocument struct {
	ID             uuid.UUID
	RunID          uuid.UUID
	ConversationID string
	UpdatedAt      string
	Title          string
	Path           string
	Policy         string
	Sections       int
}

// RecordDocument stores a written document. Recording the same conversation
// revision twice in one run is a no-op. A conversation without an id is
// stored with a NULL conversation_id, so such documents never collide.
func (s *Store) RecordDocument(ctx context.Context, doc ExportedDocument) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO exported_documents (id, run_id, conversation_id, updated_at, title, path, policy, sections)
		VALUES ($1, $2, NULLIF($3::text, ''), $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, conversation_id, updated_at) DO NOTHING`,
		doc.ID, doc.RunID, doc.ConversationID, doc.UpdatedAt, doc.Title, doc.Path, doc.Policy, doc.Sections,
	)
	if err != nil {
		return fmt.Errorf("insert exported document: %w", err)
	}
	return nil
}

// DocumentsForRun lists the documents a run wrote, in insertion order.
func (s *Store) DocumentsForRun(ctx context.Context, runID uuid.UUID) ([]ExportedDocument, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, run_id, COALESCE(conversation_id, ''), updated_at, title, path, policy, sections
		FROM exported_documents
		WHERE run_id = $1
		ORDER BY created_at, path`, runID)
	if err != nil {
		return nil, fmt.Errorf("query exported documents: %w", err)
	}
	defer rows.Close()

	var docs []ExportedDocument
	for rows.Next() {
		var d ExportedDocument
		if err := rows.Scan(&d.ID, &d.RunID, &d.ConversationID, &d.UpdatedAt, &d.Title, &d.Path, &d.Policy, &d.Sections); err != nil {
			return nil, fmt.Errorf("scan exported document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
