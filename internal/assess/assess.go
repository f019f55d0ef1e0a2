// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assess runs quality assessment passes over unevaluated candidates.
// Judge calls are deliberately serialized: the external providers rate-limit
// aggressively enough that parallel fan-out only triggers backoff storms.
package assess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-triage/internal/judge"
	"github.com/pdiddy/research-triage/internal/retry"
	"github.com/pdiddy/research-triage/internal/scoring"
	"github.com/pdiddy/research-triage/internal/store"
	"github.com/pdiddy/research-triage/pkg/types"
)

// CandidateError records one per-candidate failure within a pass.
type CandidateError struct {
	CandidateID int64  `json:"candidate_id"`
	Error       string `json:"error"`
}

// Summary holds the counters for one assessment pass.
type Summary struct {
	Processed int              `json:"processed"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Failures  []CandidateError `json:"failures,omitempty"`
}

// Orchestrator pulls unassessed-or-failed candidates from the store in
// batches, invokes the judge through the resilient invoker, and persists
// every outcome. Failed candidates stay eligible for the next pass, so
// repeated runs converge on full coverage.
type Orchestrator struct {
	store  *store.Store
	judge  judge.Judge
	policy retry.Policy
	cfg    types.AssessConfig
	log    zerolog.Logger
}

// New wires an orchestrator from its dependencies.
func New(s *store.Store, j judge.Judge, cfg types.AssessConfig, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:  s,
		judge:  j,
		policy: retry.PolicyFromConfig(cfg.Retry),
		cfg:    cfg,
		log:    log,
	}
}

// RunPass executes one assessment pass. Candidates are processed in the
// store's oldest-first order, one at a time; evaluation N is persisted
// before candidate N+1's judge call starts. Individual candidate failures
// are counted, never raised; only batch-level setup and store errors abort
// the pass. Cancellation is honored between candidates, so no evaluation
// is ever left half-written.
func (o *Orchestrator) RunPass(ctx context.Context, w io.Writer) (Summary, error) {
	batch, err := o.store.ListUnevaluatedOrFailed(ctx, o.cfg.BatchSize)
	if err != nil {
		return Summary{}, fmt.Errorf("fetching assessment batch: %w", err)
	}
	if len(batch) == 0 {
		fmt.Fprintln(w, "no candidates awaiting assessment")
		return Summary{}, nil
	}

	o.log.Info().Int("batch", len(batch)).Msg("starting assessment pass")

	var summary Summary
	for i, cand := range batch {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		ev := o.assessOne(ctx, cand)
		if upsertErr := o.store.UpsertEvaluation(ctx, ev); upsertErr != nil {
			// Store failure is fatal to the pass, not a per-candidate error.
			return summary, fmt.Errorf("persisting evaluation for candidate %d: %w", cand.ID, upsertErr)
		}

		summary.Processed++
		if ev.Failed() {
			summary.Failed++
			summary.Failures = append(summary.Failures, CandidateError{
				CandidateID: cand.ID,
				Error:       ev.ErrorMessage,
			})
			fmt.Fprintf(w, "failed   %d/%d  id=%d: %s\n", i+1, len(batch), cand.ID, ev.ErrorMessage)
		} else {
			summary.Succeeded++
			fmt.Fprintf(w, "assessed %d/%d  id=%d  score=%.2f\n", i+1, len(batch), cand.ID, *ev.WeightedScore)
		}

		if o.cfg.CallDelay > 0 && i < len(batch)-1 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(o.cfg.CallDelay):
			}
		}
	}

	o.log.Info().
		Int("processed", summary.Processed).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("assessment pass complete")

	fmt.Fprintf(w, "\nprocessed: %d, succeeded: %d, failed: %d\n",
		summary.Processed, summary.Succeeded, summary.Failed)

	return summary, nil
}

// assessOne judges a single candidate and maps the outcome onto an
// evaluation. The result always satisfies the store's exactly-one-of
// contract: a weighted score on success, an error message otherwise.
func (o *Orchestrator) assessOne(ctx context.Context, cand types.CandidateWithQuery) types.Evaluation {
	ev := types.Evaluation{
		CandidateID: cand.ID,
		QueryText:   cand.QueryText,
		AssessedAt:  time.Now().UTC(),
	}

	verdict, err := retry.Do(ctx, o.policy, func(ctx context.Context) (judge.Verdict, error) {
		return o.judge.Assess(ctx, judgeRequest(cand))
	})
	if err != nil {
		// Declined and unparsable verdicts are logged apart but persisted
		// the same way.
		var jf *judge.Failure
		if errors.As(err, &jf) && jf.Kind == judge.FailureDeclined {
			o.log.Warn().Int64("candidate", cand.ID).Err(err).Msg("judge declined")
		} else {
			o.log.Error().Int64("candidate", cand.ID).Err(err).Msg("judge failed")
		}
		ev.ErrorMessage = err.Error()
		return ev
	}

	score, err := scoring.WeightedScore(verdict.Relevance, verdict.Credibility, verdict.Solidity, verdict.Usefulness)
	if err != nil {
		// An out-of-range verdict is a judge failure, not a crash.
		o.log.Error().Int64("candidate", cand.ID).Err(err).Msg("verdict failed validation")
		ev.ErrorMessage = err.Error()
		return ev
	}

	ev.Relevance = &verdict.Relevance
	ev.Credibility = verdict.Credibility
	ev.Solidity = &verdict.Solidity
	ev.Usefulness = &verdict.Usefulness
	ev.WeightedScore = &score
	ev.Justification = verdict.Justification
	return ev
}

// judgeRequest maps a stored candidate onto the judge's boundary contract.
func judgeRequest(cand types.CandidateWithQuery) judge.Request {
	return judge.Request{
		QueryText: cand.QueryText,
		Title:     cand.Title,
		Snippet:   cand.Snippet,
		Category:  cand.Category,
		Domain:    hostOf(cand.URL),
	}
}

// hostOf extracts the host from a candidate URL, empty when absent or
// unparsable.
func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
