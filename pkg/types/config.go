// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-triage/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RetryConfig holds backoff parameters for external calls. The values are
// tuned per provider rate limits and belong in configuration, not code.
type RetryConfig struct {
	// MaxAttempts bounds retries for rate-limited calls (default 5).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// TransientAttempts bounds retries for timeouts and transport errors
	// (default 2). Rate limits get the larger MaxAttempts budget.
	TransientAttempts int `json:"transient_attempts" yaml:"transient_attempts"`

	// BaseDelay is the first backoff interval (default 2s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// Factor is the multiplicative backoff growth per attempt (default 2.0).
	Factor float64 `json:"factor" yaml:"factor"`

	// Jitter is the random fraction added to each delay, in [0, Jitter]
	// of the computed backoff (default 0.2).
	Jitter float64 `json:"jitter" yaml:"jitter"`
}

// StoreConfig holds settings for the result store.
type StoreConfig struct {
	// DataDir is the directory containing the SQLite database (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// SearchConfig holds settings for the candidate discovery stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of hits stored per provider per query
	// (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// EnableArxiv controls whether the arXiv provider is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv"`

	// EnableWeb controls whether the web search provider is used.
	EnableWeb bool `json:"enable_web" yaml:"enable_web"`

	// WebAPIKey authenticates against the web search API.
	WebAPIKey string `json:"web_api_key,omitempty" yaml:"web_api_key,omitempty"`

	// InterProviderDelay is the pause between calls to different providers
	// for the same query (default 3s).
	InterProviderDelay time.Duration `json:"inter_provider_delay" yaml:"inter_provider_delay"`
}

// JudgeConfig holds settings for the LLM judge.
type JudgeConfig struct {
	// Model is the chat model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxOutputTokens caps the judge response length (default 3000).
	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens"`

	// Temperature for the judge model (default 0.2; low for consistency).
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// AssessConfig holds settings for the assessment orchestrator.
type AssessConfig struct {
	// BatchSize is the number of candidates processed per pass
	// (0 = all unassessed or failed).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// CallDelay is the pause between consecutive judge calls (default 1s).
	CallDelay time.Duration `json:"call_delay" yaml:"call_delay"`

	// Retry configures the resilient invoker wrapped around judge calls.
	Retry RetryConfig `json:"retry" yaml:"retry"`
}

// FetchConfig holds settings for the content retrieval stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Delay is the pause between consecutive downloads (default 1s).
	Delay time.Duration `json:"delay" yaml:"delay"`

	// MaxContentBytes caps how much of a response body is stored
	// (default 512 KiB).
	MaxContentBytes int64 `json:"max_content_bytes" yaml:"max_content_bytes"`
}

// FilterConfig holds settings for the selection stage.
type FilterConfig struct {
	// WebPercent is the share of top-scored web candidates to keep (default 10).
	WebPercent float64 `json:"web_percent" yaml:"web_percent"`

	// PaperPercent is the share of top-scored paper candidates to keep (default 10).
	PaperPercent float64 `json:"paper_percent" yaml:"paper_percent"`

	// OutputDir is the directory for selection output files (default "outputs").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Store  StoreConfig  `json:"store" yaml:"store"`
	Search SearchConfig `json:"search" yaml:"search"`
	Judge  JudgeConfig  `json:"judge" yaml:"judge"`
	Assess AssessConfig `json:"assess" yaml:"assess"`
	Filter FilterConfig `json:"filter" yaml:"filter"`
	Fetch  FetchConfig  `json:"fetch" yaml:"fetch"`
}
