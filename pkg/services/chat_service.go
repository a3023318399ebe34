package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/generation"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/graph"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/llm"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/logging"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/prompts"
)

// businessKeywords route a question to the plain answer prompt.
var businessKeywords = []string{"hours", "work", "business", "open"}

// ChatService answers logistics questions from the graph.
type ChatService interface {
	Answer(ctx context.Context, input string) (*models.ChatResponse, error)
}

type chatService struct {
	client      llm.LLMClient
	strategy    generation.Strategy
	queries     graph.QueryService
	temperature float64
	logger      *zap.Logger
}

// NewChatService answers with client, generating queries through strategy.
func NewChatService(client llm.LLMClient, strategy generation.Strategy, queries graph.QueryService, temperature float64, logger *zap.Logger) ChatService {
	return &chatService{
		client:      client,
		strategy:    strategy,
		queries:     queries,
		temperature: temperature,
		logger:      logger.Named("chat-service"),
	}
}

var _ ChatService = (*chatService)(nil)

// IsBusinessQuestion reports whether input is about the business rather than shipments.
func IsBusinessQuestion(input string) bool {
	lower := strings.ToLower(input)
	for _, kw := range businessKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (s *chatService) Answer(ctx context.Context, input string) (*models.ChatResponse, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty question")
	}

	if IsBusinessQuestion(input) {
		answer, err := s.answer(ctx, input, "", "")
		if err != nil {
			return nil, err
		}
		return &models.ChatResponse{Response: answer}, nil
	}

	cypher, cypherAnswer := s.query(ctx, input)
	answer, err := s.answer(ctx, input, cypher, cypherAnswer)
	if err != nil {
		return nil, err
	}
	return &models.ChatResponse{Response: answer, Cypher: cypher, CypherAnswer: cypherAnswer}, nil
}

// query generates and runs a query. Failures become the error marker so the
// model can still explain what went wrong.
func (s *chatService) query(ctx context.Context, input string) (cypher, answer string) {
	bundle, err := s.strategy.BuildContext(ctx, input)
	if err == nil {
		cypher, err = s.strategy.Generate(ctx, input, bundle)
	}
	if err != nil {
		s.logger.Warn("Query generation failed", zap.Error(err))
		return "", models.ErrorMarker(err)
	}

	records, err := s.queries.Execute(ctx, cypher)
	if err != nil {
		s.logger.Warn("Query execution failed",
			zap.String("query", logging.SanitizeQuery(cypher)),
			zap.Error(err))
		return cypher, models.ErrorMarker(err)
	}
	return cypher, models.RecordsText(records)
}

func (s *chatService) answer(ctx context.Context, input, cypher, cypherAnswer string) (string, error) {
	result, err := s.client.GenerateResponse(ctx, prompts.AnswerPrompt(input, cypher, cypherAnswer), prompts.AnswerSystemPrompt, s.temperature)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return strings.TrimSpace(llm.StripThinking(result.Content)), nil
}
