package scoring

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/judge"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// Engine produces a ScoreRecord for each generated row.
type Engine struct {
	judge  judge.Judge
	logger *zap.Logger
}

func NewEngine(j judge.Judge, logger *zap.Logger) *Engine {
	return &Engine{judge: j, logger: logger.Named("scoring")}
}

// Score computes every field of the record. Errored rows are scored against their
// error text. A judge that cannot produce a score leaves the field nil and bumps
// JudgeFailures.
func (e *Engine) Score(ctx context.Context, example models.TestExample, result models.GenerationResult) models.ScoreRecord {
	generatedAnswer := result.AnswerText()

	rec := models.ScoreRecord{
		Question:        example.Question,
		QueryExactMatch: ExactMatch(result.GeneratedQuery, example.ExpectedQuery),
		GeneratedQuery:  result.GeneratedQuery,
		ExpectedQuery:   example.ExpectedQuery,
		GeneratedAnswer: generatedAnswer,
		ExpectedAnswer:  example.ExpectedAnswer,
		ErrorKind:       result.ErrorKind,
	}
	if !result.Failed() {
		rec.ExecutionAccuracy = ExecutionAccuracy(generatedAnswer, example.ExpectedAnswer)
	}

	queryCase := judge.Case{Input: example.Question, ActualOutput: result.GeneratedQuery, ExpectedOutput: example.ExpectedQuery}
	answerCase := judge.Case{Input: example.Question, ActualOutput: generatedAnswer, ExpectedOutput: example.ExpectedAnswer}

	calls := []struct {
		metric judge.Metric
		c      judge.Case
		dst    **float64
	}{
		{judge.MetricRelevancy, queryCase, &rec.QueryRelevancy},
		{judge.MetricCorrectness, queryCase, &rec.QueryCorrectness},
		{judge.MetricRelevancy, answerCase, &rec.AnswerRelevancy},
		{judge.MetricCorrectness, answerCase, &rec.AnswerCorrectness},
	}
	failed := make([]bool, len(calls))

	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			score, err := e.judgeOne(ctx, call.metric, call.c)
			if err != nil {
				failed[i] = true
				e.logger.Warn("Judge unavailable",
					zap.String("metric", string(call.metric)),
					zap.String("question", example.Question),
					zap.Error(err))
				return nil
			}
			*call.dst = &score
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range failed {
		if f {
			rec.JudgeFailures++
		}
	}
	return rec
}

// judgeOne scores an empty output as 0 without asking the judge.
func (e *Engine) judgeOne(ctx context.Context, metric judge.Metric, c judge.Case) (float64, error) {
	if strings.TrimSpace(c.ActualOutput) == "" {
		return 0, nil
	}
	score, err := judge.Score(ctx, e.judge, metric, c)
	if err != nil {
		if !errors.Is(err, apperrors.ErrJudgeUnavailable) {
			err = &apperrors.JudgeUnavailableError{Metric: string(metric), Cause: err}
		}
		return 0, err
	}
	return min(max(score, 0), 1), nil
}
