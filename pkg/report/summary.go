package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

const summarySeparator = "========================================"

var displayNames = map[string]string{
	models.StrategyNoContext: "No Context",
	models.StrategyFewShot:   "Few Shot",
	models.StrategyRAG:       "RAG",
}

// DisplayName returns the human-readable strategy name.
func DisplayName(strategy string) string {
	if name, ok := displayNames[strategy]; ok {
		return name
	}
	return strategy
}

// FormatAverage renders an average as a percentage, or "undefined" when no value contributed.
func FormatAverage(a models.Average) string {
	if !a.Defined() {
		return "undefined"
	}
	return fmt.Sprintf("%.2f%%", a.Value*100)
}

// WriteSummary writes the human-readable summary block of one run.
func WriteSummary(w io.Writer, r *models.EvaluationReport) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s Evaluation Summary:\n", DisplayName(r.Strategy))
	fmt.Fprintf(&sb, "Run: %s (%s)\n", r.ID, r.CompletedAt.UTC().Format("2006-01-02 15:04:05Z"))
	fmt.Fprintf(&sb, "Rows: %d\n", r.Rows)
	fmt.Fprintf(&sb, "Avg Query Relevancy: %s\n", FormatAverage(r.AvgQueryRelevancy))
	fmt.Fprintf(&sb, "Avg Query Correctness: %s\n", FormatAverage(r.AvgQueryCorrectness))
	fmt.Fprintf(&sb, "Avg Answer Relevancy: %s\n", FormatAverage(r.AvgAnswerRelevancy))
	fmt.Fprintf(&sb, "Avg Answer Correctness: %s\n", FormatAverage(r.AvgAnswerCorrectness))
	fmt.Fprintf(&sb, "Exact Match Rate: %s\n", FormatAverage(r.ExactMatchRate))
	fmt.Fprintf(&sb, "Execution Accuracy Rate: %s\n", FormatAverage(r.ExecutionAccuracyRate))
	fmt.Fprintf(&sb, "Errors: malformed_generation=%d generation=%d query_execution=%d timeouts=%d judge_unavailable=%d\n",
		r.Errors.MalformedGeneration, r.Errors.Generation, r.Errors.QueryExecution, r.Errors.Timeouts, r.Errors.JudgeUnavailable)
	sb.WriteString("\n" + summarySeparator + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// AppendSummary appends the summary of r to path so earlier runs are kept.
func AppendSummary(path string, r *models.EvaluationReport) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create summary dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- configured path
	if err != nil {
		return fmt.Errorf("failed to open summary file: %w", err)
	}
	if err := WriteSummary(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append summary: %w", err)
	}
	return f.Close()
}
