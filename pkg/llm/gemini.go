package llm

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/logging"
)

const (
	geminiEndpoint              = "https://generativelanguage.googleapis.com"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
)

// GeminiClient generates completions and embeddings with the Gemini API.
type GeminiClient struct {
	client         *genai.Client
	model          string
	embeddingModel string
	maxTokens      int
	logger         *zap.Logger
}

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *Config, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.Model == "" && cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultGeminiEmbeddingModel
	}

	return &GeminiClient{
		client:         client,
		model:          cfg.Model,
		embeddingModel: embeddingModel,
		maxTokens:      cfg.MaxTokens,
		logger:         logger.Named("llm-gemini"),
	}, nil
}

// GenerateResponse implements LLMClient.
func (c *GeminiClient) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (*GenerateResponseResult, error) {
	temp := float32(temperature)
	config := &genai.GenerateContentConfig{Temperature: &temp}
	if systemMessage != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemMessage}},
		}
	}
	if c.maxTokens > 0 {
		// #nosec G115 -- bounded by min
		config.MaxOutputTokens = int32(min(c.maxTokens, math.MaxInt32))
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		c.logger.Error("Gemini request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, classifyWithContext(err, c.model, geminiEndpoint)
	}

	content := resp.Text()
	if strings.TrimSpace(content) == "" {
		return nil, NewErrorWithContext(ErrorTypeEmptyResponse, "no text in response", true, nil, c.model, geminiEndpoint, 0)
	}

	result := &GenerateResponseResult{Content: content}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	c.logger.Debug("Gemini request completed",
		zap.Int("total_tokens", result.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// CreateEmbedding implements Embedder.
func (c *GeminiClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{input})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CreateEmbeddings embeds all inputs in a single batch call.
func (c *GeminiClient) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(inputs))
	for _, in := range inputs {
		contents = append(contents, genai.NewContentFromText(in, genai.RoleUser))
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", classifyWithContext(err, c.embeddingModel, geminiEndpoint))
	}
	if len(resp.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("embedded batch size mismatch: sent %d, got %d", len(inputs), len(resp.Embeddings))
	}

	vectors := make([][]float32, 0, len(resp.Embeddings))
	for i := range resp.Embeddings {
		vectors = append(vectors, resp.Embeddings[i].Values)
	}
	return vectors, nil
}

// GetModel implements LLMClient.
func (c *GeminiClient) GetModel() string {
	return c.model
}

// GetEndpoint implements LLMClient.
func (c *GeminiClient) GetEndpoint() string {
	return geminiEndpoint
}
