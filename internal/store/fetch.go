// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pdiddy/research-triage/pkg/types"
)

// UpsertFetchRecord writes the content-fetch outcome for a candidate,
// overwriting any previous record. Fetch records do not participate in
// scoring; they track what the downstream retrieval stage has done with
// selected candidates.
func (s *Store) UpsertFetchRecord(ctx context.Context, rec types.FetchRecord) error {
	if rec.CandidateID <= 0 {
		return fmt.Errorf("fetch record missing candidate id")
	}
	fetchedAt := rec.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetched_content (query_result_id, content, fetch_status, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(query_result_id) DO UPDATE SET
			content=excluded.content,
			fetch_status=excluded.fetch_status,
			fetched_at=excluded.fetched_at`,
		rec.CandidateID, nullString(rec.Content), string(rec.Status), fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting fetch record for candidate %d: %w", rec.CandidateID, err)
	}
	return nil
}

// GetFetchRecord returns the fetch record for a candidate, or sql.ErrNoRows.
func (s *Store) GetFetchRecord(ctx context.Context, candidateID int64) (types.FetchRecord, error) {
	var rec types.FetchRecord
	var content sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT query_result_id, content, fetch_status, fetched_at
		 FROM fetched_content WHERE query_result_id = ?`, candidateID,
	).Scan(&rec.CandidateID, &content, &rec.Status, &rec.FetchedAt)
	if err != nil {
		return types.FetchRecord{}, err
	}
	rec.Content = content.String
	return rec, nil
}

// ResetFetchRecords clears all fetch records so a new selection round can
// re-fetch from scratch.
func (s *Store) ResetFetchRecords(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM fetched_content`); err != nil {
		return fmt.Errorf("resetting fetch records: %w", err)
	}
	return nil
}

// Stats summarizes the database contents for reporting.
type Stats struct {
	TotalQueries     int                           `json:"total_queries"`
	TotalCandidates  int                           `json:"total_candidates"`
	ByCategory       map[types.SourceCategory]int  `json:"by_category"`
	Assessed         int                           `json:"assessed"`
	AssessmentErrors int                           `json:"assessment_errors"`
	AverageScores    map[string]float64            `json:"average_scores"`
}

// Statistics computes summary counts and per-dimension score averages.
func (s *Store) Statistics(ctx context.Context) (Stats, error) {
	stats := Stats{
		ByCategory:    make(map[types.SourceCategory]int),
		AverageScores: make(map[string]float64),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queries`).Scan(&stats.TotalQueries); err != nil {
		return Stats{}, fmt.Errorf("counting queries: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&stats.TotalCandidates); err != nil {
		return Stats{}, fmt.Errorf("counting candidates: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_type, COUNT(*) FROM results GROUP BY source_type`)
	if err != nil {
		return Stats{}, fmt.Errorf("counting candidates by category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return Stats{}, fmt.Errorf("scanning category count: %w", err)
		}
		stats.ByCategory[types.SourceCategory(cat)] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assessments`).Scan(&stats.Assessed); err != nil {
		return Stats{}, fmt.Errorf("counting assessments: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assessments WHERE error_message IS NOT NULL AND error_message != ''`,
	).Scan(&stats.AssessmentErrors); err != nil {
		return Stats{}, fmt.Errorf("counting assessment errors: %w", err)
	}

	for column, name := range map[string]string{
		"relevance_score":          "relevance",
		"credibility_score":        "credibility",
		"solidity_score":           "solidity",
		"overall_usefulness_score": "usefulness",
		"weighted_average_score":   "weighted",
	} {
		var avg sql.NullFloat64
		if err := s.db.QueryRowContext(ctx,
			`SELECT AVG(`+column+`) FROM assessments WHERE `+column+` IS NOT NULL`,
		).Scan(&avg); err != nil {
			return Stats{}, fmt.Errorf("averaging %s: %w", name, err)
		}
		if avg.Valid {
			stats.AverageScores[name] = avg.Float64
		}
	}

	return stats, nil
}
