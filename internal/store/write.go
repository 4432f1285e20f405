package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/esq/internal/ir"
)

// WriteExecution appends an execution to the journal and returns it with
// ID, Seq, DocHash and CreatedAt filled in.
//
// Seq is the next position in the journal, assigned inside the insert
// transaction. Uses ON CONFLICT(id) DO NOTHING for idempotency: writing the
// same ID twice keeps the first record and returns it.
//
// The document is serialized to canonical JSON so equal documents are
// stored byte-identically.
func (s *Store) WriteExecution(ctx context.Context, e Execution) (Execution, error) {
	if s.readOnly {
		return Execution{}, ErrReadOnly
	}
	doc, err := marshalDocument(e.Document)
	if err != nil {
		return Execution{}, fmt.Errorf("write execution: %w", err)
	}
	if e.DocHash == "" {
		if e.DocHash, err = ir.DocumentHash(e.Document); err != nil {
			return Execution{}, fmt.Errorf("write execution: %w", err)
		}
	}
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Execution{}, fmt.Errorf("write execution: generate id: %w", err)
		}
		e.ID = id.String()
	}
	if e.Status == "" {
		e.Status = StatusOK
		if e.Error != "" {
			e.Status = StatusError
		}
	}
	if e.Mode == "" {
		e.Mode = "search"
	}
	if e.EngineVersion == "" {
		e.EngineVersion = ir.EngineVersion
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Execution{}, fmt.Errorf("write execution: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM executions",
	).Scan(&e.Seq); err != nil {
		return Execution{}, fmt.Errorf("write execution: next seq: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO executions
		(id, seq, index_name, doc_hash, document, mode, scroll, scroll_id,
		 total, took_ms, status, error, engine_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Seq,
		e.Index,
		e.DocHash,
		doc,
		e.Mode,
		e.Scroll,
		e.ScrollID,
		e.Total,
		e.TookMs,
		e.Status,
		e.Error,
		e.EngineVersion,
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Execution{}, fmt.Errorf("write execution: insert: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return Execution{}, fmt.Errorf("write execution: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Execution{}, fmt.Errorf("write execution: commit: %w", err)
	}

	if inserted == 0 {
		// Conflict - row already exists, return the stored record
		return s.ReadExecution(ctx, e.ID)
	}
	e.Document = []byte(doc)
	return e, nil
}
