// Package ai generates candidate task pools with OpenAI. The
// generator implements the same source contract as the HTTP and file
// pool sources, so it can be swapped in by configuration alone.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/benvon/moodtask/internal/models"
	"github.com/benvon/moodtask/internal/weather"
)

const (
	// DefaultModel is the default model to use.
	DefaultModel = "gpt-4o-mini"
	// DefaultBaseURL is the default OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls.
	DefaultTimeout = 30 * time.Second
	// DefaultPoolSize is how many candidates one generation asks for.
	DefaultPoolSize = 20

	// ErrNoChoicesInResponse is returned when the API response has no choices.
	ErrNoChoicesInResponse = "no choices in response"
)

// GeneratorSource produces a candidate pool from a chat completion.
type GeneratorSource struct {
	client   openai.Client
	model    string
	poolSize int
	logger   *zap.Logger
}

// NewGeneratorSource creates a generator with the given API key and
// model. Empty model and baseURL fall back to defaults.
func NewGeneratorSource(apiKey, baseURL, model string, logger *zap.Logger) *GeneratorSource {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &GeneratorSource{
		client:   client,
		model:    model,
		poolSize: DefaultPoolSize,
		logger:   logger,
	}
}

// Fetch generates a candidate pool.
func (g *GeneratorSource) Fetch(ctx context.Context) (models.Pool, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a helpful assistant that generates to-do task suggestions suited to a person's mood and the weather. Respond with valid JSON only."),
		openai.UserMessage(g.buildPrompt()),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		g.logger.Debug("llm_api_error",
			zap.String("operation", "generate_pool"),
			zap.String("model", g.model),
			zap.Error(err),
			zap.Duration("latency_ms", latency),
		)
		return models.Pool{}, fmt.Errorf("failed to generate pool: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Pool{}, errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	g.logger.Debug("llm_api_response",
		zap.String("operation", "generate_pool"),
		zap.String("model", g.model),
		zap.Int("response_length", len(content)),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)

	pool, err := parsePoolResponse(content)
	if err != nil {
		return models.Pool{}, err
	}
	return pool, nil
}

// parsePoolResponse decodes the completion content, tolerating prose
// around the JSON object, and drops candidates with invalid filters.
func parsePoolResponse(content string) (models.Pool, error) {
	raw := content
	var pool models.Pool
	if err := json.Unmarshal([]byte(raw), &pool); err != nil {
		if len(raw) > 0 && raw[0] != '{' {
			start := bytes.Index([]byte(raw), []byte("{"))
			end := bytes.LastIndex([]byte(raw), []byte("}"))
			if start != -1 && end != -1 && end > start {
				raw = raw[start : end+1]
			}
		}
		if err := json.Unmarshal([]byte(raw), &pool); err != nil {
			return models.Pool{}, fmt.Errorf("failed to parse pool response: %w", err)
		}
	}

	kept := make([]models.Candidate, 0, len(pool.Tasks))
	for _, candidate := range pool.Tasks {
		if !validCandidate(candidate) {
			continue
		}
		kept = append(kept, candidate)
	}
	pool.Tasks = kept
	return pool, nil
}

func validCandidate(c models.Candidate) bool {
	if c.Name == "" && c.Title == "" {
		return false
	}
	if c.MoodRange.Min < 0 || c.MoodRange.Max > 100 || c.MoodRange.Min > c.MoodRange.Max {
		return false
	}
	if len(c.WeatherConditions) == 0 {
		return false
	}
	for _, condition := range c.WeatherConditions {
		if condition != models.WeatherAny && !weather.IsValidCondition(condition) {
			return false
		}
	}
	return true
}

// buildPrompt asks for a pool in the same record shape the HTTP and
// file sources decode.
func (g *GeneratorSource) buildPrompt() string {
	prompt := fmt.Sprintf(`Generate %d to-do task suggestions covering a broad mix of moods and weather conditions.

Each task has:
- "name": a short imperative title
- "description": one sentence, may be empty
- "moodRange": {"min": 0-100, "max": 0-100} where 0 is the lowest mood and 100 the highest
- "weatherConditions": an array drawn from %v, or ["any"] when the task suits all weather

Respond with a JSON object in this format:
{
  "tasks": [
    {"name": "Take a walk", "description": "", "moodRange": {"min": 0, "max": 60}, "weatherConditions": ["clear", "clouds"]}
  ]
}

Return only valid JSON.`, g.poolSize, weather.Conditions)
	return prompt
}
