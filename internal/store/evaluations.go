// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pdiddy/research-triage/internal/scoring"
	"github.com/pdiddy/research-triage/pkg/types"
)

// UpsertEvaluation writes the current evaluation for a candidate, creating
// it on the first attempt and overwriting every field in place on later
// ones. The write is a single keyed upsert statement, so concurrent readers
// never observe a half-written evaluation and concurrent writers for the
// same candidate resolve last-writer-wins.
//
// Exactly one of WeightedScore and ErrorMessage must be set; present
// dimension scores must lie in [1, 5].
func (s *Store) UpsertEvaluation(ctx context.Context, ev types.Evaluation) error {
	if ev.CandidateID <= 0 {
		return fmt.Errorf("evaluation missing candidate id")
	}
	hasScore := ev.WeightedScore != nil
	hasError := ev.ErrorMessage != ""
	if hasScore == hasError {
		return fmt.Errorf("evaluation for candidate %d must carry exactly one of weighted score and error message", ev.CandidateID)
	}
	for _, d := range []struct {
		name  string
		value *int
	}{
		{"relevance", ev.Relevance},
		{"credibility", ev.Credibility},
		{"solidity", ev.Solidity},
		{"usefulness", ev.Usefulness},
	} {
		if d.value != nil && (*d.value < 1 || *d.value > 5) {
			return &scoring.ErrScoreOutOfRange{Dimension: d.name, Value: *d.value}
		}
	}

	assessedAt := ev.AssessedAt
	if assessedAt.IsZero() {
		assessedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assessments (query_result_id, original_query_text,
			relevance_score, credibility_score, solidity_score, overall_usefulness_score,
			weighted_average_score, llm_justification, error_message, assessed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(query_result_id) DO UPDATE SET
			original_query_text=excluded.original_query_text,
			relevance_score=excluded.relevance_score,
			credibility_score=excluded.credibility_score,
			solidity_score=excluded.solidity_score,
			overall_usefulness_score=excluded.overall_usefulness_score,
			weighted_average_score=excluded.weighted_average_score,
			llm_justification=excluded.llm_justification,
			error_message=excluded.error_message,
			assessed_at=excluded.assessed_at`,
		ev.CandidateID, ev.QueryText,
		nullInt(ev.Relevance), nullInt(ev.Credibility), nullInt(ev.Solidity), nullInt(ev.Usefulness),
		nullFloat(ev.WeightedScore), nullString(ev.Justification), nullString(ev.ErrorMessage),
		assessedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting evaluation for candidate %d: %w", ev.CandidateID, err)
	}
	return nil
}

// GetEvaluation returns the current evaluation for a candidate, or
// sql.ErrNoRows if none exists.
func (s *Store) GetEvaluation(ctx context.Context, candidateID int64) (types.Evaluation, error) {
	var ev types.Evaluation
	var relevance, credibility, solidity, usefulness sql.NullInt64
	var weighted sql.NullFloat64
	var justification, errMsg sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT query_result_id, original_query_text,
			relevance_score, credibility_score, solidity_score, overall_usefulness_score,
			weighted_average_score, llm_justification, error_message, assessed_at
		 FROM assessments WHERE query_result_id = ?`, candidateID,
	).Scan(&ev.CandidateID, &ev.QueryText,
		&relevance, &credibility, &solidity, &usefulness,
		&weighted, &justification, &errMsg, &ev.AssessedAt)
	if err != nil {
		return types.Evaluation{}, err
	}

	ev.Relevance = intFromNull(relevance)
	ev.Credibility = intFromNull(credibility)
	ev.Solidity = intFromNull(solidity)
	ev.Usefulness = intFromNull(usefulness)
	if weighted.Valid {
		v := weighted.Float64
		ev.WeightedScore = &v
	}
	ev.Justification = justification.String
	ev.ErrorMessage = errMsg.String
	return ev, nil
}

// ListEvaluated returns all successfully scored candidates of the given
// category, ordered by weighted score descending with ties broken by
// candidate id ascending. The ordering is deterministic so repeated
// selections are reproducible.
func (s *Store) ListEvaluated(ctx context.Context, category types.SourceCategory) ([]types.EvaluatedCandidate, error) {
	if !category.Valid() {
		return nil, &ErrInvalidCategory{Category: string(category)}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+candidateColumns+`, a.original_query_text, a.weighted_average_score, a.llm_justification
		 FROM results r
		 JOIN assessments a ON a.query_result_id = r.id
		 WHERE r.source_type = ?
		   AND a.weighted_average_score IS NOT NULL
		   AND (a.error_message IS NULL OR a.error_message = '')
		 ORDER BY a.weighted_average_score DESC, r.id ASC`,
		string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("listing evaluated candidates: %w", err)
	}
	defer rows.Close()

	var out []types.EvaluatedCandidate
	for rows.Next() {
		var ec types.EvaluatedCandidate
		var url, title, snippet, identifier, pdfURL sql.NullString
		var justification sql.NullString
		if err := rows.Scan(
			&ec.ID, &ec.QueryID, &ec.Category, &url, &title, &snippet,
			&identifier, &pdfURL, &ec.Position, &ec.CreatedAt,
			&ec.QueryText, &ec.WeightedScore, &justification,
		); err != nil {
			return nil, fmt.Errorf("scanning evaluated candidate: %w", err)
		}
		ec.URL = url.String
		ec.Title = title.String
		ec.Snippet = snippet.String
		ec.Identifier = identifier.String
		ec.PDFURL = pdfURL.String
		ec.Justification = justification.String
		out = append(out, ec)
	}
	return out, rows.Err()
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
