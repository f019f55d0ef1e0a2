// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package judge scores a single candidate result against the research query
// using an LLM oracle. It defines the boundary contract the orchestrator
// consumes and an OpenAI-backed implementation.
package judge

import (
	"context"
	"fmt"

	"github.com/pdiddy/research-triage/pkg/types"
)

// Request carries the fields the judge sees for one candidate. Nothing else
// is part of the scoring contract.
type Request struct {
	// QueryText is the natural-language research query.
	QueryText string

	// Title and Snippet are the candidate's title and content preview. The
	// judge assesses the preview alone and must not assume content beyond it.
	Title   string
	Snippet string

	// Category governs whether credibility applies.
	Category types.SourceCategory

	// Domain is the candidate's host for web sources, empty for papers.
	Domain string
}

// Verdict is a successful judgment: four dimension scores on a 1-5 scale
// (credibility nil for paper candidates) and a short justification.
type Verdict struct {
	Relevance     int
	Credibility   *int
	Solidity      int
	Usefulness    int
	Justification string
}

// FailureKind classifies why a judge invocation failed. Declined and the
// parse failures are semantically different for logging, but the
// orchestrator persists them identically: an evaluation with the error
// recorded and no score.
type FailureKind string

const (
	// FailureDeclined means the judge refused to answer (content policy).
	FailureDeclined FailureKind = "declined"

	// FailureTruncated means the response ran out of output tokens.
	FailureTruncated FailureKind = "truncated"

	// FailureMalformed means the response could not be parsed or validated.
	FailureMalformed FailureKind = "malformed"
)

// Failure is a classified, non-retryable judge failure. Transport-level
// errors are not Failures; they carry retry classification instead and
// surface through the resilient invoker.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("judge %s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Judge is the oracle contract. Implementations must be safe for sequential
// reuse; the orchestrator never calls Assess concurrently.
type Judge interface {
	Assess(ctx context.Context, req Request) (Verdict, error)
}
