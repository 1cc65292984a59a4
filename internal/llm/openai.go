// Package llm wraps the chat-completion API used to write match analyses.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aibets/predictor/internal/metrics"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// SystemPrompt frames every completion request
const SystemPrompt = "You are an experienced football analyst and betting expert. Answer only in English."

// ErrEmptyChoices is returned when the provider answers without any completion
var ErrEmptyChoices = errors.New("no response choices")

const (
	defaultTemperature = 0.4
	defaultTopP        = 1.0
	defaultMaxTokens   = 2048
)

// Client sends prompts to an OpenAI-compatible chat completion endpoint
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	topP        float32
	maxTokens   int
}

// NewClient creates a chat completion client. An empty baseURL keeps the library default.
func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}

	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: defaultTemperature,
		topP:        defaultTopP,
		maxTokens:   defaultMaxTokens,
	}
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// isReasoningModel reports whether model rejects sampling parameters
func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func (c *Client) buildRequest(prompt string) openai.ChatCompletionRequest {
	// Reasoning models take neither system messages nor sampling parameters
	if isReasoningModel(c.model) {
		return openai.ChatCompletionRequest{
			Model:               c.model,
			MaxCompletionTokens: c.maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: SystemPrompt + "\n\n" + prompt},
			},
		}
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		TopP:        c.topP,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
}

// Complete sends prompt and returns the first choice's text
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, c.buildRequest(prompt))
	elapsed := time.Since(start)

	if err != nil {
		metrics.RecordLLMCall(c.model, "error", elapsed.Seconds())
		return "", describeError(err)
	}

	metrics.RecordLLMCall(c.model, "success", elapsed.Seconds())
	metrics.RecordLLMTokens(c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", ErrEmptyChoices
	}

	content := resp.Choices[0].Message.Content
	log.Debug().
		Str("model", c.model).
		Int("total_tokens", resp.Usage.TotalTokens).
		Int("length", len(content)).
		Dur("duration", elapsed).
		Msg("Chat completion received")

	return content, nil
}

// describeError keeps the HTTP status and provider message in the returned error
func describeError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat completion failed (status %d): %w", apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("chat completion failed (status %d): %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("chat completion failed: %w", err)
}
