// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-triage/internal/judge"
	"github.com/pdiddy/research-triage/internal/retry"
	"github.com/pdiddy/research-triage/internal/store"
	"github.com/pdiddy/research-triage/pkg/types"
)

// fakeJudge returns canned verdicts or errors keyed by request title.
type fakeJudge struct {
	verdicts map[string]judge.Verdict
	errs     map[string]error
	calls    []judge.Request
}

func (f *fakeJudge) Assess(_ context.Context, req judge.Request) (judge.Verdict, error) {
	f.calls = append(f.calls, req)
	if err, ok := f.errs[req.Title]; ok {
		return judge.Verdict{}, err
	}
	if v, ok := f.verdicts[req.Title]; ok {
		return v, nil
	}
	return judge.Verdict{}, fmt.Errorf("no canned verdict for %q", req.Title)
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(types.StoreConfig{DataDir: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addCandidate(t *testing.T, s *store.Store, queryID int64, category types.SourceCategory, title string) int64 {
	t.Helper()
	id, err := s.AddCandidate(context.Background(), types.Candidate{
		QueryID:  queryID,
		Category: category,
		URL:      "https://example.org/" + strings.ReplaceAll(title, " ", "-"),
		Title:    title,
		Snippet:  "snippet for " + title,
	})
	if err != nil {
		t.Fatalf("adding candidate: %v", err)
	}
	return id
}

func intp(v int) *int { return &v }

func quickRetry() types.RetryConfig {
	return types.RetryConfig{
		MaxAttempts:       3,
		TransientAttempts: 2,
		BaseDelay:         time.Millisecond,
		Factor:            1.0,
		Jitter:            0,
	}
}

func TestRunPassEmptyStore(t *testing.T) {
	s := testStore(t)
	o := New(s, &fakeJudge{}, types.AssessConfig{Retry: quickRetry()}, zerolog.Nop())

	var buf bytes.Buffer
	summary, err := o.RunPass(context.Background(), &buf)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if summary.Processed != 0 {
		t.Fatalf("processed = %d, want 0", summary.Processed)
	}
	if !strings.Contains(buf.String(), "no candidates") {
		t.Fatalf("output %q missing empty-batch notice", buf.String())
	}
}

func TestRunPassMixedOutcomes(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	qid, err := s.AddQuery(ctx, "transformer efficiency", "")
	if err != nil {
		t.Fatalf("adding query: %v", err)
	}

	webID := addCandidate(t, s, qid, types.CategoryWeb, "good web")
	paperID := addCandidate(t, s, qid, types.CategoryPaper, "good paper")
	badID := addCandidate(t, s, qid, types.CategoryWeb, "bad web")

	fj := &fakeJudge{
		verdicts: map[string]judge.Verdict{
			"good web":   {Relevance: 4, Credibility: intp(3), Solidity: 4, Usefulness: 4, Justification: "solid"},
			"good paper": {Relevance: 4, Solidity: 3, Usefulness: 4, Justification: "relevant"},
		},
		errs: map[string]error{
			"bad web": &judge.Failure{Kind: judge.FailureMalformed, Err: errors.New("not json")},
		},
	}

	cfg := types.AssessConfig{BatchSize: 10, Retry: quickRetry()}
	o := New(s, fj, cfg, zerolog.Nop())

	var buf bytes.Buffer
	summary, err := o.RunPass(ctx, &buf)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if summary.Processed != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 3 processed, 2 succeeded, 1 failed", summary)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].CandidateID != badID {
		t.Fatalf("failures = %+v, want single entry for candidate %d", summary.Failures, badID)
	}

	webEv, err := s.GetEvaluation(ctx, webID)
	if err != nil {
		t.Fatalf("loading web evaluation: %v", err)
	}
	if webEv.WeightedScore == nil || *webEv.WeightedScore != 3.75 {
		t.Fatalf("web score = %v, want 3.75", webEv.WeightedScore)
	}
	if webEv.Credibility == nil || *webEv.Credibility != 3 {
		t.Fatalf("web credibility = %v, want 3", webEv.Credibility)
	}

	paperEv, err := s.GetEvaluation(ctx, paperID)
	if err != nil {
		t.Fatalf("loading paper evaluation: %v", err)
	}
	if paperEv.Credibility != nil {
		t.Fatalf("paper credibility = %v, want nil", paperEv.Credibility)
	}
	if paperEv.WeightedScore == nil || *paperEv.WeightedScore != 3.73 {
		t.Fatalf("paper score = %v, want 3.73", paperEv.WeightedScore)
	}

	badEv, err := s.GetEvaluation(ctx, badID)
	if err != nil {
		t.Fatalf("loading failed evaluation: %v", err)
	}
	if !badEv.Failed() {
		t.Fatalf("evaluation for candidate %d should carry an error message", badID)
	}
}

func TestRunPassSendsDomainForWebCandidates(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	qid, err := s.AddQuery(ctx, "q", "")
	if err != nil {
		t.Fatalf("adding query: %v", err)
	}
	addCandidate(t, s, qid, types.CategoryWeb, "some page")

	fj := &fakeJudge{
		verdicts: map[string]judge.Verdict{
			"some page": {Relevance: 3, Credibility: intp(3), Solidity: 3, Usefulness: 3},
		},
	}
	o := New(s, fj, types.AssessConfig{Retry: quickRetry()}, zerolog.Nop())

	if _, err := o.RunPass(ctx, &bytes.Buffer{}); err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if len(fj.calls) != 1 {
		t.Fatalf("judge called %d times, want 1", len(fj.calls))
	}
	if fj.calls[0].Domain != "example.org" {
		t.Fatalf("domain = %q, want example.org", fj.calls[0].Domain)
	}
	if fj.calls[0].QueryText != "q" {
		t.Fatalf("query text = %q, want q", fj.calls[0].QueryText)
	}
}

func TestRunPassOutOfRangeVerdictRecordedAsFailure(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	qid, err := s.AddQuery(ctx, "q", "")
	if err != nil {
		t.Fatalf("adding query: %v", err)
	}
	id := addCandidate(t, s, qid, types.CategoryWeb, "wild verdict")

	fj := &fakeJudge{
		verdicts: map[string]judge.Verdict{
			"wild verdict": {Relevance: 9, Credibility: intp(3), Solidity: 3, Usefulness: 3},
		},
	}
	o := New(s, fj, types.AssessConfig{Retry: quickRetry()}, zerolog.Nop())

	summary, err := o.RunPass(ctx, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1", summary.Failed)
	}
	ev, err := s.GetEvaluation(ctx, id)
	if err != nil {
		t.Fatalf("loading evaluation: %v", err)
	}
	if !ev.Failed() {
		t.Fatal("out-of-range verdict should be stored as a failure")
	}
}

func TestRunPassRetriesTransientJudgeErrors(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	qid, err := s.AddQuery(ctx, "q", "")
	if err != nil {
		t.Fatalf("adding query: %v", err)
	}
	id := addCandidate(t, s, qid, types.CategoryWeb, "flaky")

	attempts := 0
	fj := &flakyJudge{
		fn: func() (judge.Verdict, error) {
			attempts++
			if attempts < 3 {
				return judge.Verdict{}, retry.RateLimited(errors.New("429"))
			}
			return judge.Verdict{Relevance: 3, Credibility: intp(3), Solidity: 3, Usefulness: 3}, nil
		},
	}
	o := New(s, fj, types.AssessConfig{Retry: quickRetry()}, zerolog.Nop())

	summary, err := o.RunPass(ctx, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("succeeded = %d, want 1", summary.Succeeded)
	}
	if attempts != 3 {
		t.Fatalf("judge attempts = %d, want 3", attempts)
	}
	if _, err := s.GetEvaluation(ctx, id); err != nil {
		t.Fatalf("loading evaluation: %v", err)
	}
}

type flakyJudge struct {
	fn func() (judge.Verdict, error)
}

func (f *flakyJudge) Assess(context.Context, judge.Request) (judge.Verdict, error) {
	return f.fn()
}

func TestRunPassFailedCandidateEligibleAgain(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	qid, err := s.AddQuery(ctx, "q", "")
	if err != nil {
		t.Fatalf("adding query: %v", err)
	}
	addCandidate(t, s, qid, types.CategoryWeb, "retryable")

	fj := &fakeJudge{errs: map[string]error{
		"retryable": &judge.Failure{Kind: judge.FailureDeclined, Err: errors.New("content filtered")},
	}}
	cfg := types.AssessConfig{Retry: quickRetry()}
	o := New(s, fj, cfg, zerolog.Nop())

	if _, err := o.RunPass(ctx, &bytes.Buffer{}); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	// The failed candidate shows up again, and a healthy second pass
	// overwrites the stored failure.
	fj2 := &fakeJudge{verdicts: map[string]judge.Verdict{
		"retryable": {Relevance: 3, Credibility: intp(3), Solidity: 3, Usefulness: 3},
	}}
	o2 := New(s, fj2, cfg, zerolog.Nop())
	summary, err := o2.RunPass(ctx, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if summary.Processed != 1 || summary.Succeeded != 1 {
		t.Fatalf("second pass summary = %+v, want 1 processed, 1 succeeded", summary)
	}

	remaining, err := s.ListUnevaluatedOrFailed(ctx, 0)
	if err != nil {
		t.Fatalf("listing remaining: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("%d candidates still pending, want 0", len(remaining))
	}
}

// cancellingWriter cancels its context on the first progress line, which
// lands between one candidate's persisted evaluation and the next call.
type cancellingWriter struct {
	cancel context.CancelFunc
}

func (w *cancellingWriter) Write(p []byte) (int, error) {
	w.cancel()
	return len(p), nil
}

func TestRunPassHonorsCancellationBetweenCandidates(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	qid, err := s.AddQuery(ctx, "q", "")
	if err != nil {
		t.Fatalf("adding query: %v", err)
	}
	firstID := addCandidate(t, s, qid, types.CategoryWeb, "first")
	addCandidate(t, s, qid, types.CategoryWeb, "second")

	fj := &fakeJudge{verdicts: map[string]judge.Verdict{
		"first":  {Relevance: 3, Credibility: intp(3), Solidity: 3, Usefulness: 3},
		"second": {Relevance: 3, Credibility: intp(3), Solidity: 3, Usefulness: 3},
	}}
	o := New(s, fj, types.AssessConfig{Retry: quickRetry()}, zerolog.Nop())

	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	summary, err := o.RunPass(cancelCtx, &cancellingWriter{cancel: cancel})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("processed = %d, want 1 before cancellation", summary.Processed)
	}
	if _, err := s.GetEvaluation(ctx, firstID); err != nil {
		t.Fatalf("first candidate's evaluation should have been persisted: %v", err)
	}
}
