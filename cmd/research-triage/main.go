// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-triage CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-triage/internal/secrets"
	"github.com/pdiddy/research-triage/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is the process-wide structured logger, configured in the
// persistent pre-run hook.
var logger = zerolog.Nop()

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the research-triage CLI.
var rootCmd = &cobra.Command{
	Use:   "research-triage",
	Short: "Search, assess, and select research sources",
	Long: `research-triage discovers candidate research sources (web pages and
academic papers), scores each one with an LLM judge across relevance,
credibility, solidity, and usefulness, and selects the top share per
category for downstream content retrieval.

Each pipeline stage is a subcommand: search discovers candidates, assess
scores them, filter selects the best, and stats reports progress.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).
			With().Timestamp().Logger()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./research-triage.yaml or ~/.config/research-triage/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the results database (default: data)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-triage")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-triage"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_TRIAGE")
	viper.AutomaticEnv()

	viper.SetDefault("store.data_dir", "data")
	viper.SetDefault("search.max_results", 10)
	viper.SetDefault("search.timeout", "30s")
	viper.SetDefault("search.user_agent", "research-triage/0.1")
	viper.SetDefault("search.inter_provider_delay", "3s")
	viper.SetDefault("judge.model", "gpt-4o-mini")
	viper.SetDefault("assess.call_delay", "1s")
	viper.SetDefault("filter.web_percent", 10.0)
	viper.SetDefault("filter.paper_percent", 10.0)
	viper.SetDefault("filter.output_dir", "outputs")
	viper.SetDefault("fetch.delay", "1s")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// storeConfig assembles the store settings from flags and config.
func storeConfig(cmd *cobra.Command) types.StoreConfig {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = viper.GetString("store.data_dir")
	}
	return types.StoreConfig{DataDir: dataDir}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
