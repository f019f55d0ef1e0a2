// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists candidate results, their quality evaluations, and
// content-fetch status in SQLite. It is the sole owner of the database:
// the assessment and selection stages read and write only through its
// operations.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/research-triage/pkg/types"
)

const dbFile = "research_triage.db"

// ErrInvalidCategory reports a source category outside the recognized set.
type ErrInvalidCategory struct {
	Category string
}

func (e *ErrInvalidCategory) Error() string {
	return fmt.Sprintf("invalid source category %q: must be %q or %q",
		e.Category, types.CategoryWeb, types.CategoryPaper)
}

// Store manages the research-triage SQLite database.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStore opens or creates the database at cfg.DataDir/research_triage.db.
// The full schema is created up front; there is no runtime migration.
func NewStore(cfg types.StoreConfig, log zerolog.Logger) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query_text TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			results_count INTEGER NOT NULL DEFAULT 0,
			notes TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query_id INTEGER NOT NULL REFERENCES queries(id),
			source_type TEXT NOT NULL CHECK (source_type IN ('web', 'paper')),
			url TEXT,
			title TEXT,
			snippet TEXT,
			paper_identifier TEXT,
			pdf_url TEXT,
			position INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_query_id ON results(query_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_source_type ON results(source_type)`,
		`CREATE TABLE IF NOT EXISTS assessments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query_result_id INTEGER NOT NULL UNIQUE REFERENCES results(id) ON DELETE CASCADE,
			original_query_text TEXT NOT NULL,
			relevance_score INTEGER,
			credibility_score INTEGER,
			solidity_score INTEGER,
			overall_usefulness_score INTEGER,
			weighted_average_score REAL,
			llm_justification TEXT,
			error_message TEXT,
			assessed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_score ON assessments(weighted_average_score)`,
		`CREATE TABLE IF NOT EXISTS fetched_content (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query_result_id INTEGER NOT NULL UNIQUE REFERENCES results(id) ON DELETE CASCADE,
			content TEXT,
			fetch_status TEXT NOT NULL,
			fetched_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	return nil
}
