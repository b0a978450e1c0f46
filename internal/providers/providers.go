// Package providers builds the embedding and LLM backends selected by configuration.
package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/config"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/ai"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/embedding"
)

// NewEmbedder returns the embedding backend for cfg.EmbeddingProvider. A local Ollama
// sentence-embedding model is the default; the hash embedder carries no meaning and is
// only selected explicitly for development and tests.
func NewEmbedder(ctx context.Context, cfg config.Config) (embedding.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "hash":
		return embedding.NewHashEmbedder(0), nil
	case "", "ollama":
		return embedding.NewOllamaEmbedder(embedding.OllamaConfig{
			BaseURL: cfg.EmbeddingBaseURL,
			Model:   cfg.EmbeddingModel,
			Timeout: cfg.LLMTimeout,
		}), nil
	case "openai":
		embedder, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.EmbeddingModel,
			BaseURL: cfg.EmbeddingBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return embedder, nil
	case "gemini":
		embedder, err := embedding.NewGeminiEmbedder(ctx, embedding.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.EmbeddingModel,
			BaseURL: cfg.EmbeddingBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return embedder, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}

// CheckEmbedder embeds a short phrase to confirm the backend is reachable.
func CheckEmbedder(ctx context.Context, embedder embedding.Embedder, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := embedder.Embed(ctx, "embedding backend check"); err != nil {
		return fmt.Errorf("embedding backend %s unreachable: %w", embedder.ModelName(), err)
	}
	return nil
}

// NewGenerator returns the LLM backend for cfg.LLMProvider, or nil when the provider
// has no API key. A nil generator keeps the evaluator in simulated mode.
func NewGenerator(ctx context.Context, cfg config.Config, logger zerolog.Logger) (ai.Generator, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil
		}
		generator, err := ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		return generator, nil
	case "", "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil
		}
		generator, err := ai.NewGeminiGenerator(ctx, ai.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			return nil, err
		}
		return generator, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}
