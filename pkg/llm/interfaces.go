// Package llm provides the model clients used to generate Cypher, write chat answers
// and judge evaluation output. OpenAI-compatible endpoints, Anthropic and Gemini are supported.
package llm

import (
	"context"
)

// LLMClient defines the interface for chat completion.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse sends a system message and a user prompt and returns the completion.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Embedder turns text into vectors for similarity search.
type Embedder interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)
}

// GenerateResponseResult is a completion plus token usage.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

var (
	_ LLMClient = (*Client)(nil)
	_ Embedder  = (*Client)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
	_ LLMClient = (*GeminiClient)(nil)
	_ Embedder  = (*GeminiClient)(nil)
)
