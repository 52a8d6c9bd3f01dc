// Package llm provides the chat-completion clients the metadata extractor
// drives in JSON mode. The provider is selected by configuration; every
// client returns the raw JSON text of one completion.
package llm

import (
	"context"
	"fmt"

	"govreporter/internal/config"
)

// Client is a reasoning model invoked once per document during enrichment.
type Client interface {
	// CompleteJSON sends one system+user exchange and returns the model's
	// JSON response body as text.
	CompleteJSON(ctx context.Context, system, user string, maxTokens int) (string, error)
	Name() string
}

// New builds the configured provider client.
func New(cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.ExtractionModel), nil
	case "gemini":
		return NewGemini(cfg.GeminiAPIKey, cfg.ExtractionModel)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}
