package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	ErrMalformedGeneration = errors.New("malformed generation")
	ErrGeneration          = errors.New("generation failed")
	ErrQueryExecution      = errors.New("query execution failed")
	ErrJudgeUnavailable    = errors.New("judge unavailable")
	ErrDatasetIntegrity    = errors.New("dataset integrity violation")
)

// MalformedGenerationError is returned when model output does not contain the
// extraction sentinel, or the sentinel is followed by nothing usable.
type MalformedGenerationError struct {
	Sentinel string
	Output   string
}

func (e *MalformedGenerationError) Error() string {
	return fmt.Sprintf("malformed generation: sentinel %q not found in model output", e.Sentinel)
}

func (e *MalformedGenerationError) Is(target error) bool {
	return target == ErrMalformedGeneration
}

// GenerationError wraps a failed model call made while generating a query.
type GenerationError struct {
	Strategy string
	Cause    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (strategy=%s): %v", e.Strategy, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

// QueryExecutionError is the tagged failure value returned by a query service.
// Timeout is set when the per-example deadline expired during execution.
type QueryExecutionError struct {
	Query   string
	Cause   error
	Timeout bool
}

func (e *QueryExecutionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("query execution timed out: %v", e.Cause)
	}
	return fmt.Sprintf("query execution failed: %v", e.Cause)
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Cause
}

func (e *QueryExecutionError) Is(target error) bool {
	return target == ErrQueryExecution
}

// JudgeUnavailableError means a scoring oracle could not produce a score.
// The affected score field is omitted rather than zeroed.
type JudgeUnavailableError struct {
	Metric string
	Cause  error
}

func (e *JudgeUnavailableError) Error() string {
	return fmt.Sprintf("judge unavailable for %s: %v", e.Metric, e.Cause)
}

func (e *JudgeUnavailableError) Unwrap() error {
	return e.Cause
}

func (e *JudgeUnavailableError) Is(target error) bool {
	return target == ErrJudgeUnavailable
}

// DatasetIntegrityError signals a structural mismatch between generated results
// and reference data. It aborts the run.
type DatasetIntegrityError struct {
	Question string
	Reason   string
}

func (e *DatasetIntegrityError) Error() string {
	return fmt.Sprintf("dataset integrity: %s: %q", e.Reason, e.Question)
}

func (e *DatasetIntegrityError) Is(target error) bool {
	return target == ErrDatasetIntegrity
}
