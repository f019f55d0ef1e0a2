// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-triage/internal/filter"
	"github.com/pdiddy/research-triage/internal/store"
	"github.com/pdiddy/research-triage/pkg/types"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Select the top scored candidates and save them",
	Long: `Filter collapses duplicate candidates, ranks the successfully assessed
ones by weighted score within each category, keeps the configured top
percentage, and writes the combined selection to a JSON file for the
content-fetch stage.`,
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().Float64("web-percent", 0, "share of web candidates to keep (default 10)")
	filterCmd.Flags().Float64("paper-percent", 0, "share of paper candidates to keep (default 10)")
	filterCmd.Flags().String("output", "", "output file path (default: timestamped file under outputs/)")

	rootCmd.AddCommand(filterCmd)
}

// filterConfig assembles the selection settings from flags and config.
func filterConfig(cmd *cobra.Command) types.FilterConfig {
	cfg := types.FilterConfig{
		WebPercent:   viper.GetFloat64("filter.web_percent"),
		PaperPercent: viper.GetFloat64("filter.paper_percent"),
		OutputDir:    viper.GetString("filter.output_dir"),
	}
	if pct, _ := cmd.Flags().GetFloat64("web-percent"); pct > 0 {
		cfg.WebPercent = pct
	}
	if pct, _ := cmd.Flags().GetFloat64("paper-percent"); pct > 0 {
		cfg.PaperPercent = pct
	}
	return cfg
}

func runFilter(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig(cmd), logger)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := filterConfig(cmd)
	sel := filter.New(s, cfg, logger)

	output, _ := cmd.Flags().GetString("output")
	path, err := sel.FilterAndSave(context.Background(), output)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "filtered results saved to %s\n", path)
	return nil
}
