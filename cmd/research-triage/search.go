// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-triage/internal/ingest"
	"github.com/pdiddy/research-triage/internal/store"
	"github.com/pdiddy/research-triage/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Discover candidate sources for a research query",
	Long: `Search runs a research query against the enabled providers (Brave web
search, arXiv) and records every hit as a candidate for later assessment.
With --query-file, all queries in the YAML file are run in sequence.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("query-file", "", "YAML file with a batch of queries")
	searchCmd.Flags().String("notes", "", "free-form notes stored with the query")
	searchCmd.Flags().Int("max-results", 0, "maximum hits stored per provider (default 10)")
	searchCmd.Flags().Bool("no-web", false, "disable the web search provider")
	searchCmd.Flags().Bool("no-papers", false, "disable the arXiv provider")

	rootCmd.AddCommand(searchCmd)
}

// searchConfig assembles the discovery settings from flags, config, and secrets.
func searchConfig(cmd *cobra.Command) types.SearchConfig {
	cfg := types.SearchConfig{
		MaxResults:         viper.GetInt("search.max_results"),
		EnableArxiv:        true,
		EnableWeb:          true,
		WebAPIKey:          secretDefault("brave-api-key", viper.GetString("search.web_api_key")),
		InterProviderDelay: viper.GetDuration("search.inter_provider_delay"),
	}
	cfg.Timeout = viper.GetDuration("search.timeout")
	cfg.UserAgent = viper.GetString("search.user_agent")

	if maxResults, _ := cmd.Flags().GetInt("max-results"); maxResults > 0 {
		cfg.MaxResults = maxResults
	}
	if noWeb, _ := cmd.Flags().GetBool("no-web"); noWeb {
		cfg.EnableWeb = false
	}
	if noPapers, _ := cmd.Flags().GetBool("no-papers"); noPapers {
		cfg.EnableArxiv = false
	}
	return cfg
}

func runSearch(cmd *cobra.Command, args []string) error {
	queryFile, _ := cmd.Flags().GetString("query-file")
	notes, _ := cmd.Flags().GetString("notes")

	var queries []ingest.QueryEntry
	switch {
	case queryFile != "":
		qf, err := ingest.ReadQueryFile(queryFile)
		if err != nil {
			return err
		}
		queries = qf.Queries
	case len(args) == 1:
		queries = []ingest.QueryEntry{{Text: args[0], Notes: notes}}
	default:
		return fmt.Errorf("provide a query argument or --query-file")
	}

	cfg := searchConfig(cmd)
	s, err := store.NewStore(storeConfig(cmd), logger)
	if err != nil {
		return err
	}
	defer s.Close()

	pipeline := ingest.NewPipeline(s, ingest.Providers(cfg), cfg, logger)

	ctx := context.Background()
	totalStored := 0
	for i, q := range queries {
		if i > 0 && cfg.InterProviderDelay > 0 {
			time.Sleep(cfg.InterProviderDelay)
		}
		fmt.Fprintf(os.Stdout, "query: %s\n", q.Text)
		summary, err := pipeline.Run(ctx, q.Text, q.Notes, os.Stdout)
		if err != nil {
			return err
		}
		totalStored += summary.Stored
	}

	fmt.Fprintf(os.Stdout, "\nstored %d candidates from %d queries\n", totalStored, len(queries))
	return nil
}
