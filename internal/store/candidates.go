// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pdiddy/research-triage/pkg/types"
)

// AddQuery records a search query and returns its id.
func (s *Store) AddQuery(ctx context.Context, queryText, notes string) (int64, error) {
	if queryText == "" {
		return 0, fmt.Errorf("query text is empty")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (query_text, notes) VALUES (?, ?)`,
		queryText, notes,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting query: %w", err)
	}
	return res.LastInsertId()
}

// SetQueryResultsCount updates the stored hit count for a query.
func (s *Store) SetQueryResultsCount(ctx context.Context, queryID int64, count int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE queries SET results_count = ? WHERE id = ?`, count, queryID)
	if err != nil {
		return fmt.Errorf("updating query %d: %w", queryID, err)
	}
	return nil
}

// AddCandidate records one discovered result and returns its id. The
// category is validated here and immutable afterwards.
func (s *Store) AddCandidate(ctx context.Context, c types.Candidate) (int64, error) {
	if !c.Category.Valid() {
		return 0, &ErrInvalidCategory{Category: string(c.Category)}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO results (query_id, source_type, url, title, snippet, paper_identifier, pdf_url, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.QueryID, string(c.Category),
		nullString(c.URL), nullString(c.Title), nullString(c.Snippet),
		nullString(c.Identifier), nullString(c.PDFURL), c.Position,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting candidate: %w", err)
	}
	return res.LastInsertId()
}

const candidateColumns = `r.id, r.query_id, r.source_type, r.url, r.title, r.snippet,
	r.paper_identifier, r.pdf_url, r.position, r.created_at`

// ListUnevaluatedOrFailed returns candidates with no evaluation or whose
// most recent evaluation failed, each joined with its originating query
// text. Results are ordered oldest-discovered-first so repeated passes are
// fair to early discoveries. limit <= 0 means all.
func (s *Store) ListUnevaluatedOrFailed(ctx context.Context, limit int) ([]types.CandidateWithQuery, error) {
	query := `SELECT ` + candidateColumns + `, q.query_text
		FROM results r
		JOIN queries q ON q.id = r.query_id
		LEFT JOIN assessments a ON a.query_result_id = r.id
		WHERE a.id IS NULL OR (a.error_message IS NOT NULL AND a.error_message != '')
		ORDER BY r.created_at ASC, r.id ASC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("listing unevaluated candidates: %w", err)
	}
	defer rows.Close()

	var out []types.CandidateWithQuery
	for rows.Next() {
		var cw types.CandidateWithQuery
		if err := scanCandidate(rows, &cw.Candidate, &cw.QueryText); err != nil {
			return nil, err
		}
		out = append(out, cw)
	}
	return out, rows.Err()
}

// Deduplicate collapses candidates sharing an identical (url, title) pair,
// absent values treated as empty strings, keeping the lowest id. Evaluations
// and fetch records of the removed siblings are deleted by cascade, so
// ranking never surfaces the same content twice. Returns the number of
// candidates removed.
func (s *Store) Deduplicate(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM results WHERE id NOT IN (
			SELECT MIN(id) FROM results
			GROUP BY COALESCE(url, ''), COALESCE(title, '')
		)`)
	if err != nil {
		return 0, fmt.Errorf("deduplicating candidates: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting removed duplicates: %w", err)
	}
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("collapsed duplicate candidates")
	}
	return int(removed), nil
}

// scanCandidate reads the candidateColumns projection plus query_text.
func scanCandidate(rows *sql.Rows, c *types.Candidate, queryText *string) error {
	var url, title, snippet, identifier, pdfURL sql.NullString
	if err := rows.Scan(
		&c.ID, &c.QueryID, &c.Category, &url, &title, &snippet,
		&identifier, &pdfURL, &c.Position, &c.CreatedAt, queryText,
	); err != nil {
		return fmt.Errorf("scanning candidate row: %w", err)
	}
	c.URL = url.String
	c.Title = title.String
	c.Snippet = snippet.String
	c.Identifier = identifier.String
	c.PDFURL = pdfURL.String
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
