package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrors_MatchSentinels(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"malformed", &MalformedGenerationError{Sentinel: "Cypher Query: "}, ErrMalformedGeneration},
		{"generation", &GenerationError{Strategy: "few_shot", Cause: cause}, ErrGeneration},
		{"execution", &QueryExecutionError{Query: "MATCH", Cause: cause}, ErrQueryExecution},
		{"judge", &JudgeUnavailableError{Metric: "relevancy", Cause: cause}, ErrJudgeUnavailable},
		{"integrity", &DatasetIntegrityError{Question: "q", Reason: "duplicate question"}, ErrDatasetIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("row failed: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.NotErrorIs(t, wrapped, ErrNotFound)
		})
	}
}

func TestQueryExecutionError_UnwrapsCause(t *testing.T) {
	err := &QueryExecutionError{Query: "MATCH (n) RETURN n", Cause: context.DeadlineExceeded, Timeout: true}

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")

	var qe *QueryExecutionError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &qe))
	assert.Equal(t, "MATCH (n) RETURN n", qe.Query)
}

func TestDatasetIntegrityError_Message(t *testing.T) {
	err := &DatasetIntegrityError{Question: "Where is 1234?", Reason: "no matching test example"}
	assert.Equal(t, `dataset integrity: no matching test example: "Where is 1234?"`, err.Error())
}
