// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"

	"github.com/pdiddy/research-triage/internal/retry"
	"github.com/pdiddy/research-triage/pkg/types"
)

const (
	defaultModel           = "gpt-4o-mini"
	defaultMaxOutputTokens = 3000
	defaultTemperature     = 0.2
)

// verdictSchema is the structured-output schema for one assessment. The
// nullable credibility_score is how the model signals "not applicable".
var verdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"relevance_score":          map[string]any{"type": "integer"},
		"credibility_score":        map[string]any{"type": []string{"integer", "null"}},
		"solidity_score":           map[string]any{"type": "integer"},
		"overall_usefulness_score": map[string]any{"type": "integer"},
		"llm_justification":        map[string]any{"type": "string"},
	},
	"required": []string{
		"relevance_score", "credibility_score", "solidity_score",
		"overall_usefulness_score", "llm_justification",
	},
	"additionalProperties": false,
}

// verdictResponse mirrors the judge's JSON output.
type verdictResponse struct {
	RelevanceScore         int    `json:"relevance_score"`
	CredibilityScore       *int   `json:"credibility_score"`
	SolidityScore          int    `json:"solidity_score"`
	OverallUsefulnessScore int    `json:"overall_usefulness_score"`
	LLMJustification       string `json:"llm_justification"`
}

// OpenAIJudge scores candidates through the OpenAI chat completions API
// with JSON-schema structured output.
type OpenAIJudge struct {
	client openai.Client
	cfg    types.JudgeConfig
	log    zerolog.Logger
}

// NewOpenAIJudge builds a judge from configuration. A BaseURL override
// points the client at a test server.
func NewOpenAIJudge(cfg types.JudgeConfig, log zerolog.Logger) *OpenAIJudge {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultMaxOutputTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}

	// The resilient invoker owns retries; disable the client's own loop so
	// backoff budgets are not multiplied.
	opts := []openaiopt.RequestOption{openaiopt.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, openaiopt.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openaiopt.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIJudge{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		log:    log,
	}
}

// Assess renders the assessment prompt, calls the model, and parses the
// structured verdict. Transport-level errors carry retry classification
// for the resilient invoker; semantic failures (declined, truncated,
// malformed) come back as *Failure and are recorded, not retried.
func (j *OpenAIJudge) Assess(ctx context.Context, req Request) (Verdict, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("building assessment prompt: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(j.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(int64(j.cfg.MaxOutputTokens)),
		Temperature:         openai.Float(j.cfg.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "source_assessment",
					Schema: verdictSchema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	completion, err := j.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Verdict{}, classifyTransport(err)
	}
	if len(completion.Choices) == 0 {
		return Verdict{}, &Failure{Kind: FailureMalformed, Err: errors.New("response contains no choices")}
	}

	choice := completion.Choices[0]
	switch choice.FinishReason {
	case "length":
		return Verdict{}, &Failure{Kind: FailureTruncated, Err: fmt.Errorf("output cut off at %d tokens", j.cfg.MaxOutputTokens)}
	case "content_filter":
		return Verdict{}, &Failure{Kind: FailureDeclined, Err: errors.New("response blocked by content filter")}
	}

	return parseVerdict(choice.Message.Content, req.Category)
}

// parseVerdict validates the raw JSON verdict. Paper candidates get their
// credibility forced to nil whatever the model answered, matching the
// scoring contract for that category.
func parseVerdict(raw string, category types.SourceCategory) (Verdict, error) {
	var vr verdictResponse
	if err := json.Unmarshal([]byte(raw), &vr); err != nil {
		return Verdict{}, &Failure{Kind: FailureMalformed, Err: fmt.Errorf("parsing verdict JSON: %w", err)}
	}

	credibility := vr.CredibilityScore
	if category == types.CategoryPaper {
		credibility = nil
	}

	for _, d := range []struct {
		name  string
		value *int
	}{
		{"relevance", &vr.RelevanceScore},
		{"credibility", credibility},
		{"solidity", &vr.SolidityScore},
		{"usefulness", &vr.OverallUsefulnessScore},
	} {
		if d.value != nil && (*d.value < 1 || *d.value > 5) {
			return Verdict{}, &Failure{
				Kind: FailureMalformed,
				Err:  fmt.Errorf("%s score %d out of range [1, 5]", d.name, *d.value),
			}
		}
	}

	return Verdict{
		Relevance:     vr.RelevanceScore,
		Credibility:   credibility,
		Solidity:      vr.SolidityScore,
		Usefulness:    vr.OverallUsefulnessScore,
		Justification: vr.LLMJustification,
	}, nil
}

// classifyTransport maps API errors onto retry classes: 429 gets the full
// backoff budget, 5xx the transient budget, and 4xx fails fast.
func classifyTransport(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests:
			return retry.RateLimited(err)
		case apierr.StatusCode >= 500:
			return retry.Transient(err)
		default:
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// Connection-level failure with no HTTP response.
	return retry.Transient(err)
}
