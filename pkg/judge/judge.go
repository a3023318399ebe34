// Package judge scores generated text against expected text with a model acting as evaluator.
package judge

import (
	"context"
)

// Metric names the judgment being made.
type Metric string

const (
	MetricRelevancy   Metric = "relevancy"
	MetricCorrectness Metric = "correctness"
)

// Case is one comparison. Input is the question that produced ActualOutput.
type Case struct {
	Input          string
	ActualOutput   string
	ExpectedOutput string
}

// Judge returns scores in [0,1]. When no score can be produced the error is an
// *apperrors.JudgeUnavailableError.
type Judge interface {
	Relevancy(ctx context.Context, c Case) (float64, error)
	Correctness(ctx context.Context, c Case) (float64, error)
}

// Score dispatches to the judge method for metric.
func Score(ctx context.Context, j Judge, metric Metric, c Case) (float64, error) {
	if metric == MetricCorrectness {
		return j.Correctness(ctx, c)
	}
	return j.Relevancy(ctx, c)
}
