package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/careercrawl/orchestrator/internal/config"
)

// NewClient selects and constructs the configured provider, mirroring the
// teacher's NewLLMService switch-on-mode factory (factory.go) but over the
// spec's two supported providers (claude, gemini) rather than the
// teacher's offline/cloud split.
func NewClient(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (Client, error) {
	switch cfg.Ranker.Provider {
	case "claude":
		return NewClaudeClient(cfg.Claude, logger)
	case "gemini":
		return NewGeminiClient(ctx, cfg.Gemini, logger)
	default:
		return nil, fmt.Errorf("unsupported ranker provider %q: must be 'claude' or 'gemini'", cfg.Ranker.Provider)
	}
}
