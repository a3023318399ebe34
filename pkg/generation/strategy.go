package generation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/graph"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/llm"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/prompts"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/retrieval"
)

// ContextBundle is what a strategy adds around the question.
// Unused fields stay empty.
type ContextBundle struct {
	SchemaText string
	Examples   string
	Retrieved  []models.RetrievedExample
}

// Strategy converts a question into a query string.
type Strategy interface {
	Name() string
	BuildContext(ctx context.Context, question string) (ContextBundle, error)
	Generate(ctx context.Context, question string, bundle ContextBundle) (string, error)
}

// Retriever returns the k training examples nearest to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]models.RetrievedExample, error)
}

// Options are shared by every strategy.
type Options struct {
	Sentinel    string
	Temperature float64
}

// base holds the model call and extraction common to all strategies.
type base struct {
	name   string
	client llm.LLMClient
	opts   Options
	logger *zap.Logger
}

func newBase(name string, client llm.LLMClient, opts Options, logger *zap.Logger) base {
	return base{name: name, client: client, opts: opts, logger: logger.Named("generation").With(zap.String("strategy", name))}
}

func (b base) Name() string {
	return b.name
}

// complete calls the model and extracts the query. Transport failures are
// GenerationErrors, missing sentinels MalformedGenerationErrors.
func (b base) complete(ctx context.Context, prompt, system string) (string, error) {
	start := time.Now()
	resp, err := b.client.GenerateResponse(ctx, prompt, system, b.opts.Temperature)
	if err != nil {
		b.logger.Warn("Model call failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", &apperrors.GenerationError{Strategy: b.name, Cause: err}
	}

	query, err := ExtractQuery(resp.Content, b.opts.Sentinel)
	if err != nil {
		b.logger.Debug("No query in model output", zap.Int("output_len", len(resp.Content)))
		return "", err
	}
	return query, nil
}

// NoContext sends the question with a generic instruction only.
type NoContext struct {
	base
}

func NewNoContext(client llm.LLMClient, opts Options, logger *zap.Logger) *NoContext {
	return &NoContext{base: newBase(models.StrategyNoContext, client, opts, logger)}
}

func (s *NoContext) BuildContext(context.Context, string) (ContextBundle, error) {
	return ContextBundle{}, nil
}

func (s *NoContext) Generate(ctx context.Context, question string, _ ContextBundle) (string, error) {
	return s.complete(ctx, prompts.NoContextPrompt(question, s.opts.Sentinel), "")
}

// FewShot grounds the model in the graph schema and a fixed example block.
// The schema is fetched once and reused.
type FewShot struct {
	base
	schema   graph.SchemaProvider
	examples string

	mu         sync.Mutex
	schemaText string
}

func NewFewShot(client llm.LLMClient, schema graph.SchemaProvider, opts Options, logger *zap.Logger) *FewShot {
	return &FewShot{
		base:     newBase(models.StrategyFewShot, client, opts, logger),
		schema:   schema,
		examples: prompts.FewShotExamples,
	}
}

func (s *FewShot) BuildContext(ctx context.Context, _ string) (ContextBundle, error) {
	text, err := s.schemaTextFor(ctx)
	if err != nil {
		return ContextBundle{}, err
	}
	return ContextBundle{SchemaText: text, Examples: s.examples}, nil
}

func (s *FewShot) schemaTextFor(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schemaText != "" {
		return s.schemaText, nil
	}
	schema, err := s.schema.GetSchema(ctx)
	if err != nil {
		return "", &apperrors.GenerationError{Strategy: s.name, Cause: fmt.Errorf("failed to load graph schema: %w", err)}
	}
	s.schemaText = schema.Text()
	return s.schemaText, nil
}

func (s *FewShot) Generate(ctx context.Context, question string, bundle ContextBundle) (string, error) {
	system := prompts.FewShotSystemPrompt(bundle.SchemaText, bundle.Examples)
	return s.complete(ctx, prompts.FewShotUserPrompt(question, s.opts.Sentinel), system)
}

// RetrievalAugmented puts the k nearest training examples in front of the question.
type RetrievalAugmented struct {
	base
	retriever Retriever
	k         int
}

func NewRetrievalAugmented(client llm.LLMClient, retriever Retriever, k int, opts Options, logger *zap.Logger) *RetrievalAugmented {
	if k <= 0 {
		k = 3
	}
	return &RetrievalAugmented{
		base:      newBase(models.StrategyRAG, client, opts, logger),
		retriever: retriever,
		k:         k,
	}
}

func (s *RetrievalAugmented) BuildContext(ctx context.Context, question string) (ContextBundle, error) {
	examples, err := s.retriever.Retrieve(ctx, question, s.k)
	if err != nil {
		return ContextBundle{}, &apperrors.GenerationError{Strategy: s.name, Cause: fmt.Errorf("failed to retrieve examples: %w", err)}
	}
	return ContextBundle{Retrieved: examples}, nil
}

func (s *RetrievalAugmented) Generate(ctx context.Context, question string, bundle ContextBundle) (string, error) {
	return s.complete(ctx, prompts.RetrievalPrompt(question, retrieval.FormatContext(bundle.Retrieved), s.opts.Sentinel), "")
}

var (
	_ Retriever = (*retrieval.Index)(nil)

	_ Strategy = (*NoContext)(nil)
	_ Strategy = (*FewShot)(nil)
	_ Strategy = (*RetrievalAugmented)(nil)
)
