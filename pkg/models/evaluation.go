package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Strategy names used in reports, file names and persisted runs.
const (
	StrategyNoContext = "no_context"
	StrategyFewShot   = "few_shot"
	StrategyRAG       = "rag"
)

// ErrorKind classifies a per-row failure.
type ErrorKind string

const (
	ErrorKindNone                ErrorKind = ""
	ErrorKindMalformedGeneration ErrorKind = "malformed_generation"
	ErrorKindGeneration          ErrorKind = "generation"
	ErrorKindQueryExecution      ErrorKind = "query_execution"
)

// ErrorMarkerPrefix prefixes the text stored in place of an answer when a row failed.
const ErrorMarkerPrefix = "Error: "

// TestExample is one reference row of the evaluation set.
// Question is the join key and must be unique within a set.
type TestExample struct {
	Question       string `json:"question" yaml:"question"`
	ExpectedQuery  string `json:"cypher" yaml:"cypher"`
	ExpectedAnswer string `json:"expected_output" yaml:"expected_output"`
}

// GenerationResult is what a strategy run produced for one question.
// Err is set when generation, extraction or execution failed.
type GenerationResult struct {
	Question       string
	GeneratedQuery string
	Records        []map[string]any
	Err            error
	ErrorKind      ErrorKind
	Timeout        bool
	Duration       time.Duration
}

// Failed reports whether the row carries an error instead of records.
func (r GenerationResult) Failed() bool {
	return r.Err != nil
}

// AnswerText renders the generated answer as JSON, or as an error marker.
func (r GenerationResult) AnswerText() string {
	if r.Err != nil {
		return ErrorMarker(r.Err)
	}
	return RecordsText(r.Records)
}

// ErrorMarker renders err the way failed answers are stored.
func ErrorMarker(err error) string {
	return ErrorMarkerPrefix + err.Error()
}

// RecordsText renders query records as JSON. Map keys are sorted by encoding/json
// so equal records always produce equal text.
func RecordsText(records []map[string]any) string {
	if records == nil {
		records = []map[string]any{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return fmt.Sprintf("%v", records)
	}
	return string(b)
}

// ScoreRecord holds every score computed for one example in one run.
// A nil score pointer means the judge was unavailable for that field.
type ScoreRecord struct {
	Question          string   `json:"question"`
	QueryExactMatch   bool     `json:"query_exact_match"`
	QueryRelevancy    *float64 `json:"query_relevancy"`
	QueryCorrectness  *float64 `json:"query_correctness"`
	ExecutionAccuracy bool     `json:"execution_accuracy"`
	AnswerRelevancy   *float64 `json:"answer_relevancy"`
	AnswerCorrectness *float64 `json:"answer_correctness"`

	GeneratedQuery  string `json:"generated_query"`
	ExpectedQuery   string `json:"expected_query"`
	GeneratedAnswer string `json:"generated_answer"`
	ExpectedAnswer  string `json:"expected_answer"`

	ErrorKind     ErrorKind `json:"error_kind,omitempty"`
	JudgeFailures int       `json:"judge_failures"`
}

// Average is an arithmetic mean over the values that were available.
// With Count == 0 the average is undefined and renders as null.
type Average struct {
	Value float64
	Count int
}

// Defined reports whether at least one value contributed.
func (a Average) Defined() bool {
	return a.Count > 0
}

func (a Average) MarshalJSON() ([]byte, error) {
	if !a.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

func (a *Average) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Average{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Average{Value: v, Count: 1}
	return nil
}

// Mean averages the non-nil values.
func Mean(values []*float64) Average {
	var sum float64
	var n int
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return Average{}
	}
	return Average{Value: sum / float64(n), Count: n}
}

// Rate is the share of true values.
func Rate(values []bool) Average {
	if len(values) == 0 {
		return Average{}
	}
	var hits int
	for _, v := range values {
		if v {
			hits++
		}
	}
	return Average{Value: float64(hits) / float64(len(values)), Count: len(values)}
}

// ErrorCounts tallies per-row failures by kind. Timeouts are a subset of QueryExecution.
type ErrorCounts struct {
	MalformedGeneration int `json:"malformed_generation"`
	Generation          int `json:"generation"`
	QueryExecution      int `json:"query_execution"`
	Timeouts            int `json:"timeouts"`
	JudgeUnavailable    int `json:"judge_unavailable"`
}

// Add records one row failure of the given kind.
func (c *ErrorCounts) Add(kind ErrorKind) {
	switch kind {
	case ErrorKindMalformedGeneration:
		c.MalformedGeneration++
	case ErrorKindGeneration:
		c.Generation++
	case ErrorKindQueryExecution:
		c.QueryExecution++
	}
}

// Rows returns the number of rows that failed before scoring.
func (c ErrorCounts) Rows() int {
	return c.MalformedGeneration + c.Generation + c.QueryExecution
}

// Metric names a report column that can be ranked.
type Metric string

const (
	MetricQueryRelevancy    Metric = "query_relevancy"
	MetricQueryCorrectness  Metric = "query_correctness"
	MetricAnswerRelevancy   Metric = "answer_relevancy"
	MetricAnswerCorrectness Metric = "answer_correctness"
	MetricExactMatch        Metric = "exact_match"
	MetricExecutionAccuracy Metric = "execution_accuracy"
)

// EvaluationReport is the aggregate of one strategy run.
type EvaluationReport struct {
	ID          uuid.UUID `json:"id"`
	Strategy    string    `json:"strategy"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Rows        int       `json:"rows"`

	AvgQueryRelevancy    Average `json:"avg_query_relevancy"`
	AvgQueryCorrectness  Average `json:"avg_query_correctness"`
	AvgAnswerRelevancy   Average `json:"avg_answer_relevancy"`
	AvgAnswerCorrectness Average `json:"avg_answer_correctness"`

	ExactMatchRate        Average `json:"exact_match_rate"`
	ExecutionAccuracyRate Average `json:"execution_accuracy_rate"`

	Errors  ErrorCounts   `json:"errors"`
	Records []ScoreRecord `json:"records,omitempty"`
}

// Metric returns the average for the named column.
func (r *EvaluationReport) Metric(m Metric) (Average, error) {
	switch m {
	case MetricQueryRelevancy:
		return r.AvgQueryRelevancy, nil
	case MetricQueryCorrectness:
		return r.AvgQueryCorrectness, nil
	case MetricAnswerRelevancy:
		return r.AvgAnswerRelevancy, nil
	case MetricAnswerCorrectness:
		return r.AvgAnswerCorrectness, nil
	case MetricExactMatch:
		return r.ExactMatchRate, nil
	case MetricExecutionAccuracy:
		return r.ExecutionAccuracyRate, nil
	default:
		return Average{}, fmt.Errorf("unknown metric %q", m)
	}
}

// RetrievedExample is a training example returned by similarity search.
type RetrievedExample struct {
	Question string  `json:"question"`
	Cypher   string  `json:"cypher"`
	Answer   string  `json:"answer"`
	Score    float32 `json:"score"`
}
