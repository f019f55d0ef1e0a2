// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest discovers candidate sources through search providers and
// records the hits for later assessment.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-triage/internal/store"
	"github.com/pdiddy/research-triage/pkg/types"
)

// Provider searches a single external source. Implementations return
// candidates without identity: QueryID and ID are assigned when the hits
// are stored.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.Candidate, error)
}

// Summary reports one ingest run.
type Summary struct {
	QueryID        int64    `json:"query_id"`
	Stored         int      `json:"stored"`
	ProviderErrors []string `json:"provider_errors,omitempty"`
}

// Pipeline fans a query out to the configured providers and persists every
// hit. Providers run sequentially with a configurable pause in between;
// the external APIs involved are strict about request pacing.
type Pipeline struct {
	store     *store.Store
	providers []Provider
	cfg       types.SearchConfig
	log       zerolog.Logger
}

// NewPipeline wires an ingest pipeline from its dependencies.
func NewPipeline(s *store.Store, providers []Provider, cfg types.SearchConfig, log zerolog.Logger) *Pipeline {
	return &Pipeline{store: s, providers: providers, cfg: cfg, log: log}
}

// Providers builds the provider set enabled by cfg.
func Providers(cfg types.SearchConfig) []Provider {
	var out []Provider
	if cfg.EnableWeb {
		out = append(out, NewBraveProvider(cfg.WebAPIKey, cfg.Timeout))
	}
	if cfg.EnableArxiv {
		out = append(out, NewArxivProvider(cfg.Timeout))
	}
	return out
}

// Run records the query, searches every provider, and stores the hits.
// A failing provider is reported and skipped; the run only errors when the
// query text is empty, no providers are configured, or the store fails.
func (p *Pipeline) Run(ctx context.Context, queryText, notes string, w io.Writer) (Summary, error) {
	if queryText == "" {
		return Summary{}, fmt.Errorf("query text is empty")
	}
	if len(p.providers) == 0 {
		return Summary{}, fmt.Errorf("no search providers enabled")
	}

	queryID, err := p.store.AddQuery(ctx, queryText, notes)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{QueryID: queryID}

	for i, prov := range p.providers {
		if i > 0 && p.cfg.InterProviderDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(p.cfg.InterProviderDelay):
			}
		}

		hits, err := prov.Search(ctx, queryText, p.cfg)
		if err != nil {
			msg := fmt.Sprintf("%s: %v", prov.Name(), err)
			summary.ProviderErrors = append(summary.ProviderErrors, msg)
			p.log.Warn().Str("provider", prov.Name()).Err(err).Msg("provider search failed")
			fmt.Fprintf(w, "warning: provider %s failed: %v\n", prov.Name(), err)
			continue
		}

		for _, hit := range hits {
			hit.QueryID = queryID
			if _, err := p.store.AddCandidate(ctx, hit); err != nil {
				return summary, fmt.Errorf("storing %s hit: %w", prov.Name(), err)
			}
			summary.Stored++
		}
		fmt.Fprintf(w, "%s: %d results\n", prov.Name(), len(hits))
	}

	if err := p.store.SetQueryResultsCount(ctx, queryID, summary.Stored); err != nil {
		return summary, err
	}

	p.log.Info().
		Int64("query", queryID).
		Int("stored", summary.Stored).
		Int("provider_errors", len(summary.ProviderErrors)).
		Msg("ingest run complete")
	return summary, nil
}
