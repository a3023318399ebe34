// Package report writes evaluation results: a per-strategy CSV, an append-only
// summary file and a strategy comparison table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// Columns is the header row of a results file.
var Columns = []string{
	"question",
	"query_exact_match",
	"query_relevancy",
	"query_correctness",
	"execution_accuracy",
	"answer_relevancy",
	"answer_correctness",
	"generated_query",
	"expected_query",
	"generated_answer",
	"expected_answer",
	"error_kind",
	"judge_failures",
}

var resultFiles = map[string]string{
	models.StrategyNoContext: "no_context_results.csv",
	models.StrategyFewShot:   "few_shot_results.csv",
	models.StrategyRAG:       "rag_evaluation_results.csv",
}

// ResultsFileName returns the CSV file name for a strategy.
func ResultsFileName(strategy string) string {
	if name, ok := resultFiles[strategy]; ok {
		return name
	}
	return strategy + "_results.csv"
}

// WriteResultsFile writes the records of r to dir, replacing any previous file.
func WriteResultsFile(dir string, r *models.EvaluationReport) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(dir, ResultsFileName(r.Strategy))

	f, err := os.Create(path) // #nosec G304 -- path built from configured output dir
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteResults(f, r.Records); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}

// WriteResults writes one CSV row per record. Unavailable scores are empty cells.
func WriteResults(w io.Writer, records []models.ScoreRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.Question,
			strconv.FormatBool(rec.QueryExactMatch),
			formatScore(rec.QueryRelevancy),
			formatScore(rec.QueryCorrectness),
			strconv.FormatBool(rec.ExecutionAccuracy),
			formatScore(rec.AnswerRelevancy),
			formatScore(rec.AnswerCorrectness),
			rec.GeneratedQuery,
			rec.ExpectedQuery,
			rec.GeneratedAnswer,
			rec.ExpectedAnswer,
			string(rec.ErrorKind),
			strconv.Itoa(rec.JudgeFailures),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %q: %w", rec.Question, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
