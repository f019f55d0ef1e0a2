// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter selects the top scoring share of assessed candidates per
// source category and exports the selection for the content-fetch stage.
package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-triage/internal/store"
	"github.com/pdiddy/research-triage/pkg/types"
)

// Selector ranks evaluated candidates by weighted score and keeps a
// configured share per category.
type Selector struct {
	store *store.Store
	cfg   types.FilterConfig
	log   zerolog.Logger
}

// New wires a selector from its dependencies.
func New(s *store.Store, cfg types.FilterConfig, log zerolog.Logger) *Selector {
	return &Selector{store: s, cfg: cfg, log: log}
}

// TopPercent returns the top pct percent of successfully evaluated
// candidates in a category, best scores first. Duplicates are collapsed
// before ranking so the same content never occupies two slots. A positive
// percentage on a non-empty pool always keeps at least one candidate;
// pct <= 0 keeps none. Category accepts the paper synonyms.
func (sel *Selector) TopPercent(ctx context.Context, category string, pct float64) ([]types.EvaluatedCandidate, error) {
	cat := types.CanonicalCategory(category)
	if !cat.Valid() {
		return nil, &store.ErrInvalidCategory{Category: category}
	}

	if _, err := sel.store.Deduplicate(ctx); err != nil {
		return nil, err
	}
	if pct <= 0 {
		return []types.EvaluatedCandidate{}, nil
	}

	ranked, err := sel.store.ListEvaluated(ctx, cat)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return []types.EvaluatedCandidate{}, nil
	}

	keep := keepCount(len(ranked), pct)
	sel.log.Info().
		Str("category", string(cat)).
		Float64("percent", pct).
		Int("pool", len(ranked)).
		Int("kept", keep).
		Msg("selected top candidates")
	return ranked[:keep], nil
}

// keepCount converts a percentage of a non-empty pool into a slot count,
// truncating toward zero but never below one.
func keepCount(n int, pct float64) int {
	keep := int(float64(n) * pct / 100.0)
	if keep < 1 {
		keep = 1
	}
	if keep > n {
		keep = n
	}
	return keep
}

// FilterAndSave selects both categories at their configured percentages and
// writes the combined selection, web candidates first, to a JSON file.
// outputFile may be empty, in which case a timestamped name under the
// configured output directory is generated. Returns the path written.
func (sel *Selector) FilterAndSave(ctx context.Context, outputFile string) (string, error) {
	web, err := sel.TopPercent(ctx, string(types.CategoryWeb), sel.cfg.WebPercent)
	if err != nil {
		return "", fmt.Errorf("selecting web candidates: %w", err)
	}
	papers, err := sel.TopPercent(ctx, string(types.CategoryPaper), sel.cfg.PaperPercent)
	if err != nil {
		return "", fmt.Errorf("selecting paper candidates: %w", err)
	}

	combined := make([]types.EvaluatedCandidate, 0, len(web)+len(papers))
	combined = append(combined, web...)
	combined = append(combined, papers...)

	if outputFile == "" {
		stamp := time.Now().Format("20060102_150405")
		outputFile = filepath.Join(sel.cfg.OutputDir, fmt.Sprintf("filtered_results_%s.json", stamp))
	}
	if dir := filepath.Dir(outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(combined, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding filtered results: %w", err)
	}
	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		return "", fmt.Errorf("writing filtered results: %w", err)
	}

	sel.log.Info().
		Int("web", len(web)).
		Int("papers", len(papers)).
		Str("path", outputFile).
		Msg("saved filtered results")
	return outputFile, nil
}

// CategoryStats summarizes the selectable pool for one category.
type CategoryStats struct {
	Total        int     `json:"total_count"`
	AvgScore     float64 `json:"avg_score"`
	MinScore     float64 `json:"min_score"`
	MaxScore     float64 `json:"max_score"`
	Top10Percent int     `json:"top_10_percent_count"`
	Top15Percent int     `json:"top_15_percent_count"`
}

// Statistics reports, per category, how many evaluated candidates are
// available for filtering and what selections at common percentages would
// yield.
func (sel *Selector) Statistics(ctx context.Context) (map[types.SourceCategory]CategoryStats, error) {
	out := make(map[types.SourceCategory]CategoryStats, 2)
	for _, cat := range []types.SourceCategory{types.CategoryWeb, types.CategoryPaper} {
		ranked, err := sel.store.ListEvaluated(ctx, cat)
		if err != nil {
			return nil, fmt.Errorf("listing %s candidates: %w", cat, err)
		}
		var cs CategoryStats
		cs.Total = len(ranked)
		if len(ranked) > 0 {
			sum := 0.0
			cs.MinScore = ranked[len(ranked)-1].WeightedScore
			cs.MaxScore = ranked[0].WeightedScore
			for _, r := range ranked {
				sum += r.WeightedScore
			}
			cs.AvgScore = sum / float64(len(ranked))
			cs.Top10Percent = keepCount(len(ranked), 10)
			cs.Top15Percent = keepCount(len(ranked), 15)
		}
		out[cat] = cs
	}
	return out, nil
}
