package judge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/llm"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/prompts"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/retry"
)

var (
	errBadVerdict = errors.New("unparseable judge verdict")
	scorePattern  = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+%?`)
)

// Options configures an LLMJudge.
type Options struct {
	Temperature float64
	MaxRetries  int
	RetryDelay  time.Duration // initial backoff, defaults to 500ms
	Breaker     llm.CircuitBreakerConfig
}

// LLMJudge asks a model for a score. Each call is retried on transient provider
// errors and unparseable verdicts. A circuit breaker stops calling a provider that
// keeps failing.
type LLMJudge struct {
	client      llm.LLMClient
	breaker     *llm.CircuitBreaker
	retry       *retry.Config
	temperature float64
	logger      *zap.Logger
}

func NewLLMJudge(client llm.LLMClient, opts Options, logger *zap.Logger) *LLMJudge {
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	breakerCfg := opts.Breaker
	if breakerCfg.Threshold <= 0 {
		breakerCfg = llm.DefaultCircuitBreakerConfig()
	}

	j := &LLMJudge{
		client:      client,
		breaker:     llm.NewCircuitBreaker(breakerCfg),
		temperature: opts.Temperature,
		logger:      logger.Named("judge"),
	}

	j.retry = &retry.Config{
		MaxRetries:   max(opts.MaxRetries, 0),
		InitialDelay: delay,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
		Retryable: func(err error) bool {
			return errors.Is(err, errBadVerdict) || retry.IsRetryable(err)
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			j.logger.Warn("Retrying judge call",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		},
	}
	return j
}

func (j *LLMJudge) Relevancy(ctx context.Context, c Case) (float64, error) {
	return j.score(ctx, MetricRelevancy, prompts.RelevancyPrompt(c.Input, c.ActualOutput, c.ExpectedOutput))
}

func (j *LLMJudge) Correctness(ctx context.Context, c Case) (float64, error) {
	return j.score(ctx, MetricCorrectness, prompts.CorrectnessPrompt(c.Input, c.ActualOutput, c.ExpectedOutput))
}

// Model returns the judge model name, used to namespace cached scores.
func (j *LLMJudge) Model() string {
	return j.client.GetModel()
}

// BreakerState reports the circuit state, for health output.
func (j *LLMJudge) BreakerState() llm.CircuitState {
	return j.breaker.State()
}

func (j *LLMJudge) score(ctx context.Context, metric Metric, prompt string) (float64, error) {
	score, err := retry.Do(ctx, j.retry, func(ctx context.Context) (float64, error) {
		var content string
		err := j.breaker.Execute(ctx, func(ctx context.Context) error {
			resp, err := j.client.GenerateResponse(ctx, prompt, prompts.JudgeSystemPrompt, j.temperature)
			if err != nil {
				return err
			}
			content = resp.Content
			return nil
		})
		if err != nil {
			return 0, err
		}
		return ParseVerdict(content)
	})
	if err != nil {
		return 0, &apperrors.JudgeUnavailableError{Metric: string(metric), Cause: err}
	}
	return score, nil
}

type verdict struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

// ParseVerdict reads a score from a judge response. A JSON object with a
// "score" field is preferred; otherwise the first number in the text is used.
// Percentages are scaled to [0,1]; anything else outside [0,1] is rejected.
func ParseVerdict(text string) (float64, error) {
	if v, err := llm.ParseJSONResponse[verdict](text); err == nil && v.Score != nil {
		return checkRange(*v.Score, text)
	}

	trimmed := strings.TrimSpace(llm.StripThinking(text))
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty response", errBadVerdict)
	}
	match := scorePattern.FindString(trimmed)
	if match == "" {
		return 0, fmt.Errorf("%w: no numeric score in %q", errBadVerdict, truncate(trimmed))
	}

	percent := strings.HasSuffix(match, "%")
	val, err := strconv.ParseFloat(strings.TrimSuffix(match, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid score %q", errBadVerdict, match)
	}
	if percent {
		val /= 100
	}
	return checkRange(val, trimmed)
}

func checkRange(val float64, text string) (float64, error) {
	if val < 0 || val > 1 {
		return 0, fmt.Errorf("%w: score %v out of range in %q", errBadVerdict, val, truncate(text))
	}
	return val, nil
}

func truncate(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}

var _ Judge = (*LLMJudge)(nil)
