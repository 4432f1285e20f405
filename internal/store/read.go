package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const executionColumns = `id, seq, index_name, doc_hash, document, mode, scroll, scroll_id,
	total, took_ms, status, error, engine_version, created_at`

// ReadExecution retrieves a single execution by ID.
// Returns ErrNotFound if no record has that ID.
func (s *Store) ReadExecution(ctx context.Context, id string) (Execution, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+executionColumns+" FROM executions WHERE id = ?", id)

	e, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Execution{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// ListExecutions returns executions matching f.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListExecutions(ctx context.Context, f Filter) ([]Execution, error) {
	var where []string
	var args []any
	if f.DocHash != "" {
		where = append(where, "doc_hash = ?")
		args = append(args, f.DocHash)
	}
	if f.Index != "" {
		where = append(where, "index_name = ?")
		args = append(args, f.Index)
	}

	query := "SELECT " + executionColumns + " FROM executions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	executions := []Execution{}
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}

	return executions, nil
}

// Stats summarizes the journal in one pass.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT doc_hash),
			COALESCE(MAX(seq), 0)
		FROM executions
	`).Scan(&st.Executions, &st.Errors, &st.Documents, &st.LastSeq)
	if err != nil {
		return Stats{}, fmt.Errorf("journal stats: %w", err)
	}
	return st, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(row scanner) (Execution, error) {
	var e Execution
	var doc, createdAt string
	err := row.Scan(
		&e.ID,
		&e.Seq,
		&e.Index,
		&e.DocHash,
		&doc,
		&e.Mode,
		&e.Scroll,
		&e.ScrollID,
		&e.Total,
		&e.TookMs,
		&e.Status,
		&e.Error,
		&e.EngineVersion,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Execution{}, err
	}
	if err != nil {
		return Execution{}, fmt.Errorf("scan execution: %w", err)
	}

	e.Document = []byte(doc)
	e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Execution{}, fmt.Errorf("scan execution %s: created_at: %w", e.ID, err)
	}
	return e, nil
}
