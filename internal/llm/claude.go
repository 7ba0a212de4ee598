package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/careercrawl/orchestrator/internal/config"
)

// ClaudeClient wraps the Anthropic SDK, grounded on the teacher's
// ClaudeService (claude_service.go): same client construction, timeout
// wrapping, and content-block text extraction, generalized to the single
// prompt-in/text-out shape the ranker and AIParsed adapter need instead of
// the teacher's multi-message chat history.
type ClaudeClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    arbor.ILogger
}

// NewClaudeClient builds a ClaudeClient from resolved ClaudeConfig.
func NewClaudeClient(cfg config.ClaudeConfig, logger arbor.ILogger) (*ClaudeClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	timeout := config.ParseDuration(cfg.Timeout, 30*time.Second)

	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))

	return &ClaudeClient{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Generate issues a single-turn completion request and returns the
// concatenated text content blocks of the response.
func (c *ClaudeClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := c.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(opts.Temperature))
	}

	resp, err := c.client.Messages.New(timeoutCtx, params)
	if err != nil {
		c.logger.Error().Err(err).Str("model", c.model).Msg("claude generate failed")
		return "", fmt.Errorf("claude generate failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("claude returned no text content")
	}
	return out.String(), nil
}
