// Package llm implements the remote completion collaborator. It sends a
// one-shot AI Query (transcript context plus the user's question) to an
// OpenAI-compatible chat completion API and returns the suggested command
// as plain text. Suggestions are only ever printed, never executed.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/aish-dev/aish/internal/config"
)

// ErrQueryFailed is returned when the remote completion call fails.
// The relay reports it to the user and keeps running.
var ErrQueryFailed = errors.New("query failed")

// Client wraps the chat completion API.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewClient builds a client from configuration. The API credential comes
// from the environment variable named by cfg.APIKeyEnv; a missing credential
// is not an error here, it surfaces as ErrQueryFailed on the first query.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey())
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:         openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Suggest sends the question with the rendered context and returns the
// model's suggested command.
func (c *Client) Suggest(ctx context.Context, question string, contextText string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildUserMessage(contextText, question),
			},
		},
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", ErrQueryFailed)
	}

	suggestion := strings.TrimSpace(resp.Choices[0].Message.Content)
	if suggestion == "" {
		return "", fmt.Errorf("%w: response was empty", ErrQueryFailed)
	}

	c.logger.Debug(
		"completion received",
		zap.String("model", c.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("promptTokens", resp.Usage.PromptTokens),
		zap.Int("completionTokens", resp.Usage.CompletionTokens),
	)

	return suggestion, nil
}
