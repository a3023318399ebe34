package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/eval"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

func ptr(v float64) *float64 { return &v }

func sampleReport(strategy string) *models.EvaluationReport {
	return &models.EvaluationReport{
		ID:                    uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		Strategy:              strategy,
		CompletedAt:           time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Rows:                  2,
		AvgQueryRelevancy:     models.Average{Value: 0.875, Count: 2},
		AvgQueryCorrectness:   models.Average{},
		AvgAnswerRelevancy:    models.Average{Value: 1, Count: 2},
		AvgAnswerCorrectness:  models.Average{Value: 0.5, Count: 1},
		ExactMatchRate:        models.Average{Value: 0.5, Count: 2},
		ExecutionAccuracyRate: models.Average{Value: 0, Count: 2},
		Errors:                models.ErrorCounts{QueryExecution: 1, Timeouts: 1, JudgeUnavailable: 1},
		Records: []models.ScoreRecord{
			{
				Question:          "How many shipments left Berlin?",
				QueryExactMatch:   true,
				QueryRelevancy:    ptr(0.75),
				ExecutionAccuracy: false,
				AnswerRelevancy:   ptr(1),
				AnswerCorrectness: ptr(0.5),
				GeneratedQuery:    "MATCH (s:Shipment) RETURN count(s)",
				ExpectedQuery:     "MATCH (s:Shipment) RETURN count(s)",
				GeneratedAnswer:   `[{"count(s)":3}]`,
				ExpectedAnswer:    `[{"count(s)":4}]`,
				JudgeFailures:     1,
			},
			{
				Question:        "Which route, is slowest?",
				GeneratedAnswer: "Error: timed out",
				ErrorKind:       models.ErrorKindQueryExecution,
			},
		},
	}
}

func TestResultsFileName(t *testing.T) {
	assert.Equal(t, "no_context_results.csv", ResultsFileName(models.StrategyNoContext))
	assert.Equal(t, "few_shot_results.csv", ResultsFileName(models.StrategyFewShot))
	assert.Equal(t, "rag_evaluation_results.csv", ResultsFileName(models.StrategyRAG))
	assert.Equal(t, "custom_results.csv", ResultsFileName("custom"))
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, sampleReport(models.StrategyRAG).Records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "How many shipments left Berlin?", rows[1][0])
	assert.Equal(t, "true", rows[1][1])
	assert.Equal(t, "0.75", rows[1][2])
	assert.Equal(t, "", rows[1][3], "unavailable score is an empty cell")
	assert.Equal(t, "1", rows[1][12])

	assert.Equal(t, "Which route, is slowest?", rows[2][0], "commas survive quoting")
	assert.Equal(t, "query_execution", rows[2][11])
}

func TestWriteResultsFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := WriteResultsFile(dir, sampleReport(models.StrategyFewShot))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "few_shot_results.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "question,query_exact_match,"))
}

func TestFormatAverage(t *testing.T) {
	assert.Equal(t, "undefined", FormatAverage(models.Average{}))
	assert.Equal(t, "87.50%", FormatAverage(models.Average{Value: 0.875, Count: 3}))
	assert.Equal(t, "0.00%", FormatAverage(models.Average{Value: 0, Count: 1}))
}

func TestAppendSummary_KeepsEarlierRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evaluation_summary.txt")

	require.NoError(t, AppendSummary(path, sampleReport(models.StrategyNoContext)))
	require.NoError(t, AppendSummary(path, sampleReport(models.StrategyRAG)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "\nNo Context Evaluation Summary:\n")
	assert.Contains(t, text, "\nRAG Evaluation Summary:\n")
	assert.Less(t, strings.Index(text, "No Context"), strings.Index(text, "RAG Evaluation"))
	assert.Equal(t, 2, strings.Count(text, summarySeparator))
	assert.Contains(t, text, "Avg Query Relevancy: 87.50%")
	assert.Contains(t, text, "Avg Query Correctness: undefined")
	assert.Contains(t, text, "query_execution=1 timeouts=1 judge_unavailable=1")
}

func TestWriteComparison(t *testing.T) {
	reports := []*models.EvaluationReport{sampleReport(models.StrategyNoContext), sampleReport(models.StrategyRAG)}
	reports[1].AvgAnswerCorrectness = models.Average{Value: 0.9, Count: 2}

	rankings, err := eval.Rank(reports, models.MetricAnswerCorrectness)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, rankings, models.MetricAnswerCorrectness))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Ranked by answer_correctness", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "RANK"))
	assert.True(t, strings.HasPrefix(lines[2], "1"))
	assert.Contains(t, lines[2], "RAG")
	assert.Contains(t, lines[3], "No Context")
}
