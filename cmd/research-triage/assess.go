// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-triage/internal/assess"
	"github.com/pdiddy/research-triage/internal/judge"
	"github.com/pdiddy/research-triage/internal/store"
	"github.com/pdiddy/research-triage/pkg/types"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Score unassessed candidates with the LLM judge",
	Long: `Assess runs one scoring pass over candidates that have no evaluation
yet or whose last attempt failed. Each candidate is judged on relevance,
credibility, solidity, and usefulness, and the weighted score is stored.
Failed candidates stay eligible, so rerunning converges on full coverage.

Interrupting with Ctrl-C stops cleanly between candidates.`,
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().Int("batch-size", 0, "candidates per pass (0 = all pending)")
	assessCmd.Flags().String("model", "", "judge model (default gpt-4o-mini)")
	assessCmd.Flags().Duration("call-delay", 0, "pause between judge calls (default 1s)")

	rootCmd.AddCommand(assessCmd)
}

// assessConfig assembles the orchestrator settings from flags and config.
func assessConfig(cmd *cobra.Command) types.AssessConfig {
	cfg := types.AssessConfig{
		BatchSize: viper.GetInt("assess.batch_size"),
		CallDelay: viper.GetDuration("assess.call_delay"),
		Retry: types.RetryConfig{
			MaxAttempts:       viper.GetInt("assess.retry.max_attempts"),
			TransientAttempts: viper.GetInt("assess.retry.transient_attempts"),
			BaseDelay:         viper.GetDuration("assess.retry.base_delay"),
			Factor:            viper.GetFloat64("assess.retry.factor"),
			Jitter:            viper.GetFloat64("assess.retry.jitter"),
		},
	}
	if batch, _ := cmd.Flags().GetInt("batch-size"); batch > 0 {
		cfg.BatchSize = batch
	}
	if delay, _ := cmd.Flags().GetDuration("call-delay"); delay > 0 {
		cfg.CallDelay = delay
	}
	return cfg
}

// judgeConfig assembles the judge settings from flags, config, and secrets.
func judgeConfig(cmd *cobra.Command) types.JudgeConfig {
	cfg := types.JudgeConfig{
		Model:           viper.GetString("judge.model"),
		APIKey:          secretDefault("openai-api-key", viper.GetString("judge.api_key")),
		BaseURL:         viper.GetString("judge.base_url"),
		MaxOutputTokens: viper.GetInt("judge.max_output_tokens"),
		Temperature:     viper.GetFloat64("judge.temperature"),
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Model = model
	}
	return cfg
}

func runAssess(cmd *cobra.Command, args []string) error {
	jcfg := judgeConfig(cmd)
	if jcfg.APIKey == "" {
		return fmt.Errorf("no OpenAI API key: add .secrets/openai-api-key or set judge.api_key")
	}

	s, err := store.NewStore(storeConfig(cmd), logger)
	if err != nil {
		return err
	}
	defer s.Close()

	j := judge.NewOpenAIJudge(jcfg, logger)
	orch := assess.New(s, j, assessConfig(cmd), logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := orch.RunPass(ctx, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d candidate(s) failed assessment", summary.Failed)
	}
	return nil
}
