// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-triage/internal/fetch"
	"github.com/pdiddy/research-triage/internal/filter"
	"github.com/pdiddy/research-triage/internal/store"
	"github.com/pdiddy/research-triage/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download content for the selected candidates",
	Long: `Fetch runs the selection at the configured percentages and downloads
the content of every selected candidate over HTTP, recording each outcome.
Candidates already fetched successfully are skipped; earlier failures are
re-attempted, so rerunning converges on full coverage.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Float64("web-percent", 0, "share of web candidates to fetch (default 10)")
	fetchCmd.Flags().Float64("paper-percent", 0, "share of paper candidates to fetch (default 10)")
	fetchCmd.Flags().Duration("delay", 0, "pause between downloads (default 1s)")
	fetchCmd.Flags().Bool("reset", false, "clear all fetch records before fetching")

	rootCmd.AddCommand(fetchCmd)
}

// fetchConfig assembles the retrieval settings from flags and config.
func fetchConfig(cmd *cobra.Command) types.FetchConfig {
	cfg := types.FetchConfig{
		Delay:           viper.GetDuration("fetch.delay"),
		MaxContentBytes: viper.GetInt64("fetch.max_content_bytes"),
	}
	cfg.Timeout = viper.GetDuration("search.timeout")
	cfg.UserAgent = viper.GetString("search.user_agent")

	if delay, _ := cmd.Flags().GetDuration("delay"); delay > 0 {
		cfg.Delay = delay
	}
	return cfg
}

func runFetch(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig(cmd), logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if reset, _ := cmd.Flags().GetBool("reset"); reset {
		if err := s.ResetFetchRecords(ctx); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "cleared fetch records")
	}

	fcfg := filterConfig(cmd)
	sel := filter.New(s, fcfg, logger)

	var selected []types.EvaluatedCandidate
	web, err := sel.TopPercent(ctx, string(types.CategoryWeb), fcfg.WebPercent)
	if err != nil {
		return err
	}
	papers, err := sel.TopPercent(ctx, string(types.CategoryPaper), fcfg.PaperPercent)
	if err != nil {
		return err
	}
	selected = append(selected, web...)
	selected = append(selected, papers...)

	if len(selected) == 0 {
		fmt.Fprintln(os.Stdout, "no candidates selected for fetching")
		return nil
	}

	summary, err := fetch.New(s, fetchConfig(cmd), logger).Run(ctx, selected, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d candidate(s) failed fetching", summary.Failed)
	}
	return nil
}
