package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/careercrawl/orchestrator/internal/config"
)

// GeminiClient wraps google.golang.org/genai, grounded on the teacher's
// GeminiService (gemini_service.go): same client construction and
// candidate/part text extraction, generalized to a single prompt string
// instead of a chat history.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	temp    float32
}

// NewGeminiClient builds a GeminiClient from resolved GeminiConfig.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, logger arbor.ILogger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set GEMINI_API_KEY or gemini.api_key in config)")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	timeout := config.ParseDuration(cfg.Timeout, 30*time.Second)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &GeminiClient{client: client, model: model, timeout: timeout, temp: cfg.Temperature}, nil
}

// Generate issues a single-turn GenerateContent call and extracts the
// first non-empty candidate's text.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	temp := g.temp
	if opts.Temperature > 0 {
		temp = opts.Temperature
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(timeoutCtx, g.model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	var out strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					out.WriteString(part.Text)
				}
			}
			if out.Len() > 0 {
				break
			}
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text content")
	}
	return out.String(), nil
}
