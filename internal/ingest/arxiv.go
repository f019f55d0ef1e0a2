// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/research-triage/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivProvider queries the arXiv API for academic papers.
type ArxivProvider struct {
	client *http.Client
}

// NewArxivProvider builds an arXiv provider with its own HTTP client.
func NewArxivProvider(timeout time.Duration) *ArxivProvider {
	return &ArxivProvider{client: &http.Client{Timeout: timeout}}
}

// Name returns the provider identifier.
func (p *ArxivProvider) Name() string { return "arxiv" }

// Search queries the arXiv API and maps the Atom feed onto paper candidates.
func (p *ArxivProvider) Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.Candidate, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, q, maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var out []types.Candidate
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}
		out = append(out, types.Candidate{
			Category:   types.CategoryPaper,
			URL:        strings.TrimSpace(entry.ID),
			Title:      strings.TrimSpace(entry.Title),
			Snippet:    strings.TrimSpace(entry.Summary),
			Identifier: arxivID,
			PDFURL:     entry.pdfLink(),
			Position:   len(out) + 1,
		})
	}
	return out, nil
}

// buildArxivQuery constructs the search_query parameter from free text.
func buildArxivQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	for i, t := range terms {
		terms[i] = url.QueryEscape(t)
	}
	return "all:" + strings.Join(terms, "+")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID      string      `xml:"id"`
	Title   string      `xml:"title"`
	Summary string      `xml:"summary"`
	Links   []arxivLink `xml:"link"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

// pdfLink returns the entry's direct PDF URL, empty when absent.
func (e arxivEntry) pdfLink() string {
	for _, l := range e.Links {
		if l.Title == "pdf" {
			return l.Href
		}
	}
	return ""
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(idURL[idx+len(prefix):])

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
