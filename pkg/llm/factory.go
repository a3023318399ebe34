package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/config"
)

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// NewClientForProvider creates a chat client for the configured provider.
// Returns LLMClient interface to enable dependency injection of mocks.
func NewClientForProvider(ctx context.Context, cfg config.ProviderConfig, apiKey string, logger *zap.Logger) (LLMClient, error) {
	clientCfg := &Config{
		Endpoint:  cfg.Endpoint,
		Model:     cfg.Model,
		APIKey:    apiKey,
		MaxTokens: cfg.MaxTokens,
	}

	switch cfg.Provider {
	case ProviderOpenAI, "":
		client, err := NewClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return client, nil
	case ProviderAnthropic:
		client, err := NewAnthropicClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil
	case ProviderGemini:
		client, err := NewGeminiClient(ctx, clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// NewEmbedder creates the embedding client used for example retrieval.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig, apiKey string, logger *zap.Logger) (Embedder, error) {
	clientCfg := &Config{
		Endpoint:       cfg.Endpoint,
		EmbeddingModel: cfg.Model,
		APIKey:         apiKey,
	}

	switch cfg.Provider {
	case ProviderOpenAI, "":
		client, err := NewClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create embedding client: %w", err)
		}
		return client, nil
	case ProviderGemini:
		client, err := NewGeminiClient(ctx, clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create embedding client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
}
