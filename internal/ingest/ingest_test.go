// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-triage/internal/store"
	"github.com/pdiddy/research-triage/pkg/types"
)

func testCfg() types.SearchConfig {
	cfg := types.SearchConfig{MaxResults: 10}
	cfg.Timeout = 5 * time.Second
	cfg.UserAgent = "research-triage-test/0.1"
	return cfg
}

// --- arXiv provider ---

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Attention Is Not All You Need</title>
    <summary>A study of attention mechanisms.</summary>
    <link href="http://arxiv.org/abs/2301.07041v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.07041v2" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2212.00001v1</id>
    <title>Second Paper</title>
    <summary>Another abstract.</summary>
  </entry>
</feed>`

func TestArxivSearchParsesFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, arxivFeedXML)
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	p := NewArxivProvider(5 * time.Second)
	got, err := p.Search(context.Background(), "attention mechanisms", testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}

	first := got[0]
	if first.Category != types.CategoryPaper {
		t.Errorf("category = %q, want paper", first.Category)
	}
	if first.Identifier != "2301.07041" {
		t.Errorf("identifier = %q, want 2301.07041 (version stripped)", first.Identifier)
	}
	if first.Title != "Attention Is Not All You Need" {
		t.Errorf("title = %q", first.Title)
	}
	if first.PDFURL != "http://arxiv.org/pdf/2301.07041v2" {
		t.Errorf("pdf url = %q", first.PDFURL)
	}
	if first.Position != 1 || got[1].Position != 2 {
		t.Errorf("positions = %d, %d; want 1, 2", first.Position, got[1].Position)
	}
	if got[1].PDFURL != "" {
		t.Errorf("second entry pdf url = %q, want empty", got[1].PDFURL)
	}
}

func TestArxivSearchRequestParams(t *testing.T) {
	var captured *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, `<feed xmlns="http://www.w3.org/2005/Atom"></feed>`)
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	cfg := testCfg()
	cfg.MaxResults = 7

	p := NewArxivProvider(5 * time.Second)
	if _, err := p.Search(context.Background(), "graph neural networks", cfg); err != nil {
		t.Fatalf("Search: %v", err)
	}

	// "+" separators decode as spaces on the query-string round trip.
	q := captured.URL.Query()
	if got := q.Get("search_query"); got != "all:graph neural networks" {
		t.Errorf("search_query = %q", got)
	}
	if got := q.Get("max_results"); got != "7" {
		t.Errorf("max_results = %q, want 7", got)
	}
	if got := captured.Header.Get("User-Agent"); got != "research-triage-test/0.1" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestArxivSearchEmptyQuery(t *testing.T) {
	p := NewArxivProvider(time.Second)
	if _, err := p.Search(context.Background(), "   ", testCfg()); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://arxiv.org/abs/hep-th/9901001v2", "hep-th/9901001"},
		{"http://example.org/nothing", ""},
	}
	for _, tt := range tests {
		if got := extractArxivID(tt.in); got != tt.want {
			t.Errorf("extractArxivID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- Brave provider ---

const braveBody = `{"web":{"results":[
  {"title":"Go SQLite tutorial","url":"https://example.org/go-sqlite","description":"Using SQLite from Go."},
  {"title":"Another page","url":"https://example.net/page","description":"More content."}
]}}`

func TestBraveSearchParsesResults(t *testing.T) {
	var captured *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, braveBody)
	}))
	defer ts.Close()

	old := braveAPIBase
	braveAPIBase = ts.URL
	defer func() { braveAPIBase = old }()

	p := NewBraveProvider("test-key", 5*time.Second)
	got, err := p.Search(context.Background(), "go sqlite", testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Category != types.CategoryWeb {
		t.Errorf("category = %q, want web", got[0].Category)
	}
	if got[0].URL != "https://example.org/go-sqlite" {
		t.Errorf("url = %q", got[0].URL)
	}
	if got[0].Snippet != "Using SQLite from Go." {
		t.Errorf("snippet = %q", got[0].Snippet)
	}

	if got := captured.Header.Get("X-Subscription-Token"); got != "test-key" {
		t.Errorf("X-Subscription-Token = %q", got)
	}
	if got := captured.URL.Query().Get("q"); got != "go sqlite" {
		t.Errorf("q param = %q", got)
	}
	if got := captured.URL.Query().Get("count"); got != "10" {
		t.Errorf("count param = %q, want 10", got)
	}
}

func TestBraveSearchRetriesRateLimit(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, braveBody)
	}))
	defer ts.Close()

	old := braveAPIBase
	braveAPIBase = ts.URL
	defer func() { braveAPIBase = old }()

	p := NewBraveProvider("test-key", 5*time.Second)
	p.policy.BaseDelay = time.Millisecond

	got, err := p.Search(context.Background(), "go sqlite", testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if calls != 2 {
		t.Fatalf("server saw %d calls, want 2", calls)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
}

func TestBraveSearchRequiresAPIKey(t *testing.T) {
	p := NewBraveProvider("", time.Second)
	if _, err := p.Search(context.Background(), "anything", testCfg()); err == nil {
		t.Fatal("expected error without API key")
	}
}

// --- Pipeline ---

type stubProvider struct {
	name string
	hits []types.Candidate
	err  error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(context.Context, string, types.SearchConfig) ([]types.Candidate, error) {
	return s.hits, s.err
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

func TestPipelineStoresHitsFromAllProviders(t *testing.T) {
	s := testStore(t)
	providers := []Provider{
		&stubProvider{name: "web", hits: []types.Candidate{
			{Category: types.CategoryWeb, URL: "https://example.org/a", Title: "A", Position: 1},
		}},
		&stubProvider{name: "papers", hits: []types.Candidate{
			{Category: types.CategoryPaper, Title: "P", Identifier: "2301.00001", Position: 1},
		}},
	}

	pl := NewPipeline(s, providers, testCfg(), zerolog.Nop())
	var buf bytes.Buffer
	summary, err := pl.Run(context.Background(), "test query", "", &buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Stored != 2 {
		t.Fatalf("stored = %d, want 2", summary.Stored)
	}
	if len(summary.ProviderErrors) != 0 {
		t.Fatalf("provider errors = %v, want none", summary.ProviderErrors)
	}

	pending, err := s.ListUnevaluatedOrFailed(context.Background(), 0)
	if err != nil {
		t.Fatalf("listing candidates: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("store holds %d candidates, want 2", len(pending))
	}
	for _, c := range pending {
		if c.QueryID != summary.QueryID {
			t.Errorf("candidate %d has query id %d, want %d", c.ID, c.QueryID, summary.QueryID)
		}
		if c.QueryText != "test query" {
			t.Errorf("candidate %d query text = %q", c.ID, c.QueryText)
		}
	}
}

func TestPipelineSkipsFailingProvider(t *testing.T) {
	s := testStore(t)
	providers := []Provider{
		&stubProvider{name: "broken", err: errors.New("boom")},
		&stubProvider{name: "web", hits: []types.Candidate{
			{Category: types.CategoryWeb, URL: "https://example.org/a", Title: "A", Position: 1},
		}},
	}

	pl := NewPipeline(s, providers, testCfg(), zerolog.Nop())
	var buf bytes.Buffer
	summary, err := pl.Run(context.Background(), "q", "", &buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Stored != 1 {
		t.Fatalf("stored = %d, want 1", summary.Stored)
	}
	if len(summary.ProviderErrors) != 1 || !strings.Contains(summary.ProviderErrors[0], "broken") {
		t.Fatalf("provider errors = %v, want one naming the broken provider", summary.ProviderErrors)
	}
	if !strings.Contains(buf.String(), "warning: provider broken failed") {
		t.Fatalf("output %q missing provider warning", buf.String())
	}
}

func TestPipelineRejectsEmptyQuery(t *testing.T) {
	s := testStore(t)
	pl := NewPipeline(s, []Provider{&stubProvider{name: "web"}}, testCfg(), zerolog.Nop())
	if _, err := pl.Run(context.Background(), "", "", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestPipelineRequiresProviders(t *testing.T) {
	s := testStore(t)
	pl := NewPipeline(s, nil, testCfg(), zerolog.Nop())
	if _, err := pl.Run(context.Background(), "q", "", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error with no providers")
	}
}

func TestProvidersRespectsConfig(t *testing.T) {
	cfg := testCfg()
	cfg.EnableArxiv = true
	cfg.EnableWeb = true
	cfg.WebAPIKey = "k"

	got := Providers(cfg)
	if len(got) != 2 {
		t.Fatalf("got %d providers, want 2", len(got))
	}

	cfg.EnableWeb = false
	got = Providers(cfg)
	if len(got) != 1 || got[0].Name() != "arxiv" {
		t.Fatalf("got %v, want just arxiv", got)
	}
}

// --- Query file ---

func TestReadQueryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.yaml")
	content := `queries:
  - text: "sqlite performance tuning"
    notes: "storage"
  - text: "llm evaluation methods"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	qf, err := ReadQueryFile(path)
	if err != nil {
		t.Fatalf("ReadQueryFile: %v", err)
	}
	if len(qf.Queries) != 2 {
		t.Fatalf("got %d queries, want 2", len(qf.Queries))
	}
	if qf.Queries[0].Text != "sqlite performance tuning" || qf.Queries[0].Notes != "storage" {
		t.Fatalf("first query = %+v", qf.Queries[0])
	}
}

func TestReadQueryFileRejectsMissingText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.yaml")
	if err := os.WriteFile(path, []byte("queries:\n  - notes: oops\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := ReadQueryFile(path); err == nil {
		t.Fatal("expected error for query without text")
	}
}
