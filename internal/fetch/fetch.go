// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves the content of selected candidates and records
// each outcome in the store.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-triage/internal/retry"
	"github.com/pdiddy/research-triage/internal/store"
	"github.com/pdiddy/research-triage/pkg/types"
)

const defaultMaxContentBytes = 512 << 10

// Summary holds the counters for one fetch run.
type Summary struct {
	Fetched int `json:"fetched"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Total returns the number of candidates processed.
func (s Summary) Total() int {
	return s.Fetched + s.Skipped + s.Failed
}

// Fetcher downloads candidate content over plain HTTP. Candidates with a
// successful record are skipped; earlier failures are re-attempted, and
// every outcome is recorded so reruns converge like assessment passes do.
type Fetcher struct {
	client *http.Client
	store  *store.Store
	cfg    types.FetchConfig
	policy retry.Policy
	log    zerolog.Logger
}

// New wires a fetcher from its dependencies.
func New(s *store.Store, cfg types.FetchConfig, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		store:  s,
		cfg:    cfg,
		policy: retry.DefaultPolicy(),
		log:    log,
	}
}

// Run fetches content for the given candidates, printing per-item status
// and returning a summary. Individual failures are recorded and counted,
// never raised; only store errors abort the run.
func (f *Fetcher) Run(ctx context.Context, candidates []types.EvaluatedCandidate, w io.Writer) (Summary, error) {
	var summary Summary
	for i, cand := range candidates {
		if i > 0 && f.cfg.Delay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(f.cfg.Delay):
			}
		}

		existing, err := f.store.GetFetchRecord(ctx, cand.ID)
		if err == nil && existing.Status == types.FetchSucceeded {
			fmt.Fprintf(w, "skipped: %d (already fetched)\n", cand.ID)
			summary.Skipped++
			continue
		}

		content, fetchErr := f.fetchOne(ctx, cand)
		rec := types.FetchRecord{CandidateID: cand.ID, FetchedAt: time.Now().UTC()}
		if fetchErr != nil {
			rec.Status = types.FetchFailed
			f.log.Warn().Int64("candidate", cand.ID).Err(fetchErr).Msg("content fetch failed")
			fmt.Fprintf(w, "failed:  %d (%v)\n", cand.ID, fetchErr)
			summary.Failed++
		} else {
			rec.Status = types.FetchSucceeded
			rec.Content = content
			fmt.Fprintf(w, "fetched: %d (%d bytes)\n", cand.ID, len(content))
			summary.Fetched++
		}
		if err := f.store.UpsertFetchRecord(ctx, rec); err != nil {
			return summary, err
		}
	}

	fmt.Fprintf(w, "\nFetch summary: %d fetched, %d skipped, %d failed (total: %d)\n",
		summary.Fetched, summary.Skipped, summary.Failed, summary.Total())
	return summary, nil
}

// fetchOne downloads one candidate's content. Papers use the direct PDF
// link when the landing URL is absent.
func (f *Fetcher) fetchOne(ctx context.Context, cand types.EvaluatedCandidate) (string, error) {
	target := cand.URL
	if target == "" {
		target = cand.PDFURL
	}
	if target == "" {
		return "", fmt.Errorf("candidate has no fetchable URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := retry.DoRequest(ctx, f.client, req, f.policy)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, target)
	}

	limit := f.cfg.MaxContentBytes
	if limit <= 0 {
		limit = defaultMaxContentBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	content := strings.ToValidUTF8(string(body), "")
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty response body from %s", target)
	}
	return content, nil
}
