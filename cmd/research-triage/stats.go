// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-triage/internal/filter"
	"github.com/pdiddy/research-triage/internal/store"
	"github.com/pdiddy/research-triage/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report assessment and selection progress",
	Long: `Stats summarizes the database: query and candidate counts, assessment
coverage and failures, per-dimension score averages, and what a selection
at common percentages would keep.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "output statistics as JSON")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig(cmd), logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	dbStats, err := s.Statistics(ctx)
	if err != nil {
		return err
	}
	selStats, err := filter.New(s, filterConfig(cmd), logger).Statistics(ctx)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Store     store.Stats                                 `json:"store"`
			Selection map[types.SourceCategory]filter.CategoryStats `json:"selection"`
		}{dbStats, selStats})
	}

	fmt.Printf("queries:            %d\n", dbStats.TotalQueries)
	fmt.Printf("candidates:         %d\n", dbStats.TotalCandidates)
	for _, cat := range []types.SourceCategory{types.CategoryWeb, types.CategoryPaper} {
		if n, ok := dbStats.ByCategory[cat]; ok {
			fmt.Printf("  %-17s %d\n", string(cat)+":", n)
		}
	}
	fmt.Printf("assessed:           %d\n", dbStats.Assessed)
	fmt.Printf("assessment errors:  %d\n", dbStats.AssessmentErrors)

	if len(dbStats.AverageScores) > 0 {
		fmt.Println("\naverage scores:")
		names := make([]string, 0, len(dbStats.AverageScores))
		for name := range dbStats.AverageScores {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-12s %.2f\n", name+":", dbStats.AverageScores[name])
		}
	}

	fmt.Println("\nselectable pools:")
	for _, cat := range []types.SourceCategory{types.CategoryWeb, types.CategoryPaper} {
		cs := selStats[cat]
		fmt.Printf("  %-6s %d evaluated", string(cat)+":", cs.Total)
		if cs.Total > 0 {
			fmt.Printf("  (scores %.2f-%.2f, top 10%% keeps %d)", cs.MinScore, cs.MaxScore, cs.Top10Percent)
		}
		fmt.Println()
	}
	return nil
}
