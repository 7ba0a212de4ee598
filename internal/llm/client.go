// Package llm provides a provider-agnostic text-generation client used by
// the ranker (C5) and the AIParsed adapter (C2), grounded on the teacher's
// internal/services/llm package (provider.go, claude_service.go,
// gemini_service.go, factory.go).
package llm

import "context"

// Options tunes a single Generate call. A zero MaxTokens falls back to
// the client's configured max tokens. A zero Temperature leaves the
// temperature unset: ClaudeClient then uses the provider's default and
// does not apply the configured Claude temperature.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Client is the provider-agnostic contract spec.md §6 requires:
// Generate(ctx, prompt, opts) (string, error). Both ClaudeClient and
// GeminiClient satisfy it.
type Client interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}
