// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research-triage pipeline.
package types

import "time"

// SourceCategory identifies the kind of source a candidate came from.
// The category is fixed when the candidate is created and governs whether
// source credibility is a meaningful assessment dimension.
type SourceCategory string

const (
	// CategoryWeb is a web page discovered by an internet search provider.
	CategoryWeb SourceCategory = "web"

	// CategoryPaper is an academic paper. Papers are assessed without a
	// credibility dimension: peer-reviewed venues make the signal redundant.
	CategoryPaper SourceCategory = "paper"
)

// Valid reports whether c is one of the recognized categories.
func (c SourceCategory) Valid() bool {
	return c == CategoryWeb || c == CategoryPaper
}

// CanonicalCategory maps synonym labels for paper sources ("papers",
// "research_papers") onto CategoryPaper. Other values pass through unchanged.
func CanonicalCategory(s string) SourceCategory {
	switch s {
	case "paper", "papers", "research_paper", "research_papers":
		return CategoryPaper
	default:
		return SourceCategory(s)
	}
}

// Candidate is one discovered item (web page or paper) considered for
// inclusion in the research corpus.
type Candidate struct {
	// ID is the store-assigned identity, unique and immutable once created.
	ID int64 `json:"id" yaml:"id"`

	// QueryID references the search query that discovered this candidate.
	QueryID int64 `json:"query_id" yaml:"query_id"`

	// Category is the source kind, fixed at creation.
	Category SourceCategory `json:"category" yaml:"category"`

	// URL is the candidate's location. Empty for some paper results that
	// only carry an identifier.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Title is the result title as returned by the provider.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Snippet is the text preview or abstract the provider returned. The
	// judge assesses the candidate on this preview alone.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	// Identifier is the category-specific identifier (DOI or arXiv ID for
	// papers). Empty for web results.
	Identifier string `json:"identifier,omitempty" yaml:"identifier,omitempty"`

	// PDFURL is a direct-download location for papers, when known.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// Position is the candidate's rank within its provider's result list.
	Position int `json:"position" yaml:"position"`

	// CreatedAt is the discovery timestamp.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// CandidateWithQuery pairs a candidate with the text of the query that
// discovered it, as returned by the store's unevaluated listing.
type CandidateWithQuery struct {
	Candidate
	QueryText string `json:"query_text" yaml:"query_text"`
}

// Evaluation is the current quality judgment for one candidate. It is a
// replaceable cache of the most recent judge verdict, never a history:
// every assessment attempt overwrites it in place.
type Evaluation struct {
	CandidateID int64 `json:"candidate_id" yaml:"candidate_id"`

	// QueryText is the natural-language query the judgment was made against.
	QueryText string `json:"query_text" yaml:"query_text"`

	// The four raw dimension scores, each 1-5 when present. Credibility is
	// nil for paper candidates.
	Relevance   *int `json:"relevance_score" yaml:"relevance_score"`
	Credibility *int `json:"credibility_score" yaml:"credibility_score"`
	Solidity    *int `json:"solidity_score" yaml:"solidity_score"`
	Usefulness  *int `json:"overall_usefulness_score" yaml:"overall_usefulness_score"`

	// WeightedScore is the combined scalar in [1.0, 5.0]. Present exactly
	// when ErrorMessage is empty.
	WeightedScore *float64 `json:"weighted_average_score" yaml:"weighted_average_score"`

	// Justification is the judge's free-text explanation.
	Justification string `json:"llm_justification,omitempty" yaml:"llm_justification,omitempty"`

	// ErrorMessage records why the most recent attempt failed, if it did.
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	// AssessedAt is the timestamp of the most recent attempt.
	AssessedAt time.Time `json:"assessed_at" yaml:"assessed_at"`
}

// Failed reports whether the most recent assessment attempt failed.
func (e Evaluation) Failed() bool {
	return e.ErrorMessage != ""
}

// EvaluatedCandidate joins a candidate with its successful evaluation, as
// produced by the store's ranked listing and consumed by the selection
// engine's downstream content-fetch stage.
type EvaluatedCandidate struct {
	Candidate
	QueryText     string  `json:"query_text" yaml:"query_text"`
	WeightedScore float64 `json:"weighted_average_score" yaml:"weighted_average_score"`
	Justification string  `json:"llm_justification,omitempty" yaml:"llm_justification,omitempty"`
}

// FetchStatus tracks downstream content retrieval for a candidate.
type FetchStatus string

const (
	FetchSucceeded FetchStatus = "success"
	FetchFailed    FetchStatus = "failed"
)

// FetchRecord is the per-candidate content retrieval outcome. At most one
// exists per candidate; re-fetching overwrites it.
type FetchRecord struct {
	CandidateID int64       `json:"candidate_id" yaml:"candidate_id"`
	Content     string      `json:"content,omitempty" yaml:"content,omitempty"`
	Status      FetchStatus `json:"status" yaml:"status"`
	FetchedAt   time.Time   `json:"fetched_at" yaml:"fetched_at"`
}
