package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/generation"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/graph"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/llm"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/prompts"
)

func TestIsBusinessQuestion(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"What are your business hours?", true},
		{"Are you OPEN on Saturday?", true},
		{"Do you work weekends?", true},
		{"What is the status of shipment 1234?", false},
		{"Where was shipment 5678 dispatched from?", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBusinessQuestion(tt.input))
		})
	}
}

// answerRecorder replies with a fixed answer and keeps the prompts it saw.
type answerRecorder struct {
	mu      sync.Mutex
	prompts []string
}

func (a *answerRecorder) client(answer string, err error) *llm.MockLLMClient {
	m := llm.NewMockLLMClient()
	m.GenerateResponseFunc = func(_ context.Context, prompt, system string, _ float64) (*llm.GenerateResponseResult, error) {
		a.mu.Lock()
		a.prompts = append(a.prompts, prompt)
		a.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return &llm.GenerateResponseResult{Content: answer}, nil
	}
	return m
}

func TestChatService_BusinessQuestionSkipsGraph(t *testing.T) {
	rec := &answerRecorder{}
	strategy := &generation.MockStrategy{StrategyName: models.StrategyFewShot}
	queries := &graph.MockQueryService{}
	svc := NewChatService(rec.client(prompts.BusinessHours, nil), strategy, queries, 0, zap.NewNop())

	resp, err := svc.Answer(context.Background(), "What are your business hours?")
	require.NoError(t, err)

	assert.Equal(t, prompts.BusinessHours, resp.Response)
	assert.Empty(t, resp.Cypher)
	assert.Empty(t, strategy.GeneratedQuestions())
	assert.Empty(t, queries.ExecutedQueries())
	require.Len(t, rec.prompts, 1)
	assert.NotContains(t, rec.prompts[0], "Cypher generated")
}

func TestChatService_ShipmentQuestion(t *testing.T) {
	rec := &answerRecorder{}
	cypher := "MATCH (s:Shipment {tracking_number: '1234'}) RETURN s.status"
	strategy := &generation.MockStrategy{
		StrategyName: models.StrategyFewShot,
		GenerateFunc: func(context.Context, string, generation.ContextBundle) (string, error) {
			return cypher, nil
		},
	}
	queries := &graph.MockQueryService{
		ExecuteFunc: func(context.Context, string) ([]map[string]any, error) {
			return []map[string]any{{"s.status": "In Transit"}}, nil
		},
	}
	svc := NewChatService(rec.client("  The status of shipment 1234 is In Transit.\n", nil), strategy, queries, 0, zap.NewNop())

	resp, err := svc.Answer(context.Background(), "What is the status of shipment 1234?")
	require.NoError(t, err)

	assert.Equal(t, "The status of shipment 1234 is In Transit.", resp.Response)
	assert.Equal(t, cypher, resp.Cypher)
	assert.Equal(t, `[{"s.status":"In Transit"}]`, resp.CypherAnswer)
	assert.Equal(t, []string{cypher}, queries.ExecutedQueries())
	require.Len(t, rec.prompts, 1)
	assert.Contains(t, rec.prompts[0], cypher)
}

func TestChatService_QueryFailureIsExplained(t *testing.T) {
	rec := &answerRecorder{}
	strategy := &generation.MockStrategy{
		StrategyName: models.StrategyFewShot,
		GenerateFunc: func(context.Context, string, generation.ContextBundle) (string, error) {
			return "MATCH (s RETURN s", nil
		},
	}
	queries := &graph.MockQueryService{
		ExecuteFunc: func(_ context.Context, q string) ([]map[string]any, error) {
			return nil, &apperrors.QueryExecutionError{Query: q, Cause: errors.New("Invalid input")}
		},
	}
	svc := NewChatService(rec.client("Sorry, I could not look that up.", nil), strategy, queries, 0, zap.NewNop())

	resp, err := svc.Answer(context.Background(), "Where is shipment 9999?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.CypherAnswer, models.ErrorMarkerPrefix))
	assert.Equal(t, "MATCH (s RETURN s", resp.Cypher)
}

func TestChatService_MalformedGeneration(t *testing.T) {
	rec := &answerRecorder{}
	strategy := &generation.MockStrategy{
		StrategyName: models.StrategyFewShot,
		GenerateFunc: func(context.Context, string, generation.ContextBundle) (string, error) {
			return "", &apperrors.MalformedGenerationError{Output: "no idea"}
		},
	}
	queries := &graph.MockQueryService{}
	svc := NewChatService(rec.client("I could not find that shipment.", nil), strategy, queries, 0, zap.NewNop())

	resp, err := svc.Answer(context.Background(), "Where is shipment 9999?")
	require.NoError(t, err)
	assert.Empty(t, resp.Cypher)
	assert.True(t, strings.HasPrefix(resp.CypherAnswer, models.ErrorMarkerPrefix))
	assert.Empty(t, queries.ExecutedQueries())
}

func TestChatService_Errors(t *testing.T) {
	rec := &answerRecorder{}
	svc := NewChatService(rec.client("", errors.New("rate limited")), &generation.MockStrategy{}, &graph.MockQueryService{}, 0, zap.NewNop())

	_, err := svc.Answer(context.Background(), "   ")
	assert.Error(t, err)

	_, err = svc.Answer(context.Background(), "Are you open today?")
	assert.ErrorContains(t, err, "failed to generate answer")
}
