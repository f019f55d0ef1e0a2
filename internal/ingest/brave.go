// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pdiddy/research-triage/internal/retry"
	"github.com/pdiddy/research-triage/pkg/types"
)

// braveAPIBase is the Brave web search endpoint. Declared as a var so tests
// can substitute an httptest server.
var braveAPIBase = "https://api.search.brave.com/res/v1/web/search"

// BraveProvider queries the Brave Search API for web pages. Brave enforces
// a strict per-second quota on the free plan, so requests go through the
// resilient invoker and 429s back off rather than fail.
type BraveProvider struct {
	client *http.Client
	apiKey string
	policy retry.Policy
}

// NewBraveProvider builds a Brave provider with its own HTTP client.
func NewBraveProvider(apiKey string, timeout time.Duration) *BraveProvider {
	return &BraveProvider{
		client: &http.Client{Timeout: timeout},
		apiKey: apiKey,
		policy: retry.DefaultPolicy(),
	}
}

// Name returns the provider identifier.
func (p *BraveProvider) Name() string { return "brave" }

// braveResponse mirrors the subset of the Brave Search API response we use.
type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search queries the Brave Search API and maps the hits onto web candidates.
func (p *BraveProvider) Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.Candidate, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("brave API key is not configured")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, braveAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := retry.DoRequest(ctx, p.client, req, p.policy)
	if err != nil {
		return nil, fmt.Errorf("brave API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave API returned HTTP %d", resp.StatusCode)
	}

	var body braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing brave response: %w", err)
	}

	var out []types.Candidate
	for _, r := range body.Web.Results {
		if r.URL == "" {
			continue
		}
		out = append(out, types.Candidate{
			Category: types.CategoryWeb,
			URL:      r.URL,
			Title:    r.Title,
			Snippet:  r.Description,
			Position: len(out) + 1,
		})
		if len(out) == maxResults {
			break
		}
	}
	return out, nil
}
