package judge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/llm"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/prompts"
)

func testOptions() Options {
	return Options{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Breaker:    llm.CircuitBreakerConfig{Threshold: 100, ResetAfter: time.Minute},
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"json", `{"score": 0.8, "reason": "mostly right"}`, 0.8},
		{"json in prose", "Here is my verdict:\n```json\n{\"score\": 1, \"reason\": \"exact\"}\n```", 1},
		{"bare number", "0.25", 0.25},
		{"labelled number", "Score: .5", 0.5},
		{"percentage", "I would say 70%", 0.7},
		{"zero", `{"score": 0}`, 0},
		{"thinking removed", "<think>maybe 7</think>0.9", 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdict(tt.text)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseVerdict_Invalid(t *testing.T) {
	for _, text := range []string{"", "no idea", `{"score": 7}`, "8 out of 10", "-0.5"} {
		t.Run(text, func(t *testing.T) {
			_, err := ParseVerdict(text)
			assert.ErrorIs(t, err, errBadVerdict)
		})
	}
}

func TestLLMJudge_PromptsPerMetric(t *testing.T) {
	var gotPrompts, gotSystems []string
	client := llm.NewMockLLMClient()
	client.GenerateResponseFunc = func(_ context.Context, prompt, system string, _ float64) (*llm.GenerateResponseResult, error) {
		gotPrompts = append(gotPrompts, prompt)
		gotSystems = append(gotSystems, system)
		return &llm.GenerateResponseResult{Content: `{"score": 0.6, "reason": "ok"}`}, nil
	}
	j := NewLLMJudge(client, testOptions(), zap.NewNop())
	c := Case{Input: "Status of 1234?", ActualOutput: "MATCH (a) RETURN a", ExpectedOutput: "MATCH (b) RETURN b"}

	rel, err := j.Relevancy(context.Background(), c)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, rel, 1e-9)

	cor, err := j.Correctness(context.Background(), c)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, cor, 1e-9)

	require.Len(t, gotPrompts, 2)
	assert.Contains(t, gotPrompts[0], "Reference output:\nMATCH (b) RETURN b")
	assert.NotContains(t, gotPrompts[0], prompts.CorrectnessCriteria)
	assert.Contains(t, gotPrompts[1], "Expected output:\nMATCH (b) RETURN b")
	assert.Contains(t, gotPrompts[1], prompts.CorrectnessCriteria)
	assert.Equal(t, prompts.JudgeSystemPrompt, gotSystems[0])
}

func TestLLMJudge_RetriesTransientAndBadVerdicts(t *testing.T) {
	responses := []struct {
		content string
		err     error
	}{
		{err: llm.NewError(llm.ErrorTypeRateLimit, "rate limited", true, nil)},
		{content: "I cannot decide"},
		{content: `{"score": 0.4}`},
	}
	client := llm.NewMockLLMClient()
	call := 0
	client.GenerateResponseFunc = func(context.Context, string, string, float64) (*llm.GenerateResponseResult, error) {
		r := responses[call]
		call++
		if r.err != nil {
			return nil, r.err
		}
		return &llm.GenerateResponseResult{Content: r.content}, nil
	}

	j := NewLLMJudge(client, testOptions(), zap.NewNop())
	got, err := j.Relevancy(context.Background(), Case{Input: "q", ActualOutput: "a"})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, got, 1e-9)
	assert.Equal(t, 3, client.GenerateResponseCalls())
}

func TestLLMJudge_NonRetryableFailsFast(t *testing.T) {
	client := llm.NewMockLLMClient()
	client.GenerateResponseFunc = func(context.Context, string, string, float64) (*llm.GenerateResponseResult, error) {
		return nil, llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, nil)
	}
	j := NewLLMJudge(client, testOptions(), zap.NewNop())

	_, err := j.Correctness(context.Background(), Case{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrJudgeUnavailable))

	var ju *apperrors.JudgeUnavailableError
	require.True(t, errors.As(err, &ju))
	assert.Equal(t, "correctness", ju.Metric)
	assert.Equal(t, 1, client.GenerateResponseCalls())
}

func TestLLMJudge_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	client := llm.NewMockLLMClient()
	client.GenerateResponseFunc = func(context.Context, string, string, float64) (*llm.GenerateResponseResult, error) {
		return nil, errors.New("503 service unavailable")
	}
	opts := testOptions()
	opts.MaxRetries = 0
	opts.Breaker = llm.CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Hour}
	j := NewLLMJudge(client, opts, zap.NewNop())
	ctx := context.Background()

	for range 2 {
		_, err := j.Relevancy(ctx, Case{})
		require.Error(t, err)
	}
	assert.Equal(t, llm.CircuitOpen, j.BreakerState())

	_, err := j.Relevancy(ctx, Case{})
	require.ErrorIs(t, err, llm.ErrCircuitOpen)
	assert.ErrorIs(t, err, apperrors.ErrJudgeUnavailable)
	assert.Equal(t, 2, client.GenerateResponseCalls())
}

func TestLLMJudge_ExhaustedRetries(t *testing.T) {
	client := llm.NewStaticMockLLMClient("The answer looks fine to me.")
	j := NewLLMJudge(client, testOptions(), zap.NewNop())

	_, err := j.Relevancy(context.Background(), Case{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrJudgeUnavailable)
	assert.True(t, strings.Contains(err.Error(), "unparseable"))
	assert.Equal(t, 3, client.GenerateResponseCalls())
}
