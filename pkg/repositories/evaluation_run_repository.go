package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/database"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

const defaultListLimit = 20

// EvaluationRunRepository persists evaluation reports and their per-example scores.
type EvaluationRunRepository interface {
	Create(ctx context.Context, report *models.EvaluationReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EvaluationReport, error)
	ListRecent(ctx context.Context, limit int) ([]*models.EvaluationReport, error)
	ListByStrategy(ctx context.Context, strategy string, limit int) ([]*models.EvaluationReport, error)
}

type evaluationRunRepository struct {
	db *database.DB
}

func NewEvaluationRunRepository(db *database.DB) EvaluationRunRepository {
	return &evaluationRunRepository{db: db}
}

var _ EvaluationRunRepository = (*evaluationRunRepository)(nil)

var scoreColumns = []string{
	"run_id", "position", "question",
	"query_exact_match", "query_relevancy", "query_correctness",
	"execution_accuracy", "answer_relevancy", "answer_correctness",
	"generated_query", "expected_query", "generated_answer", "expected_answer",
	"error_kind", "judge_failures",
}

// Create stores the run and every score record in one transaction.
func (r *evaluationRunRepository) Create(ctx context.Context, report *models.EvaluationReport) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	errorsJSON, err := json.Marshal(report.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal error counts: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	query := `
		INSERT INTO evaluation_runs (
			id, strategy, started_at, completed_at, row_count,
			avg_query_relevancy, avg_query_correctness,
			avg_answer_relevancy, avg_answer_correctness,
			exact_match_rate, execution_accuracy_rate, errors
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = tx.Exec(ctx, query,
		report.ID, report.Strategy, report.StartedAt, report.CompletedAt, report.Rows,
		nullable(report.AvgQueryRelevancy), nullable(report.AvgQueryCorrectness),
		nullable(report.AvgAnswerRelevancy), nullable(report.AvgAnswerCorrectness),
		nullable(report.ExactMatchRate), nullable(report.ExecutionAccuracyRate),
		errorsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create evaluation run: %w", err)
	}

	if len(report.Records) > 0 {
		rows := make([][]any, len(report.Records))
		for i, rec := range report.Records {
			rows[i] = []any{
				report.ID, i, rec.Question,
				rec.QueryExactMatch, rec.QueryRelevancy, rec.QueryCorrectness,
				rec.ExecutionAccuracy, rec.AnswerRelevancy, rec.AnswerCorrectness,
				rec.GeneratedQuery, rec.ExpectedQuery, rec.GeneratedAnswer, rec.ExpectedAnswer,
				string(rec.ErrorKind), rec.JudgeFailures,
			}
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"evaluation_scores"}, scoreColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to store evaluation scores: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID returns the run with its score records, or apperrors.ErrNotFound.
func (r *evaluationRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EvaluationReport, error) {
	query := `
		SELECT id, strategy, started_at, completed_at, row_count,
		       avg_query_relevancy, avg_query_correctness,
		       avg_answer_relevancy, avg_answer_correctness,
		       exact_match_rate, execution_accuracy_rate, errors
		FROM evaluation_runs
		WHERE id = $1`

	report, err := scanRun(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get evaluation run: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT question, query_exact_match, query_relevancy, query_correctness,
		       execution_accuracy, answer_relevancy, answer_correctness,
		       generated_query, expected_query, generated_answer, expected_answer,
		       error_kind, judge_failures
		FROM evaluation_scores
		WHERE run_id = $1
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluation scores: %w", err)
	}
	defer rows.Close()

	report.Records = make([]models.ScoreRecord, 0, report.Rows)
	for rows.Next() {
		var rec models.ScoreRecord
		var kind string
		if err := rows.Scan(
			&rec.Question, &rec.QueryExactMatch, &rec.QueryRelevancy, &rec.QueryCorrectness,
			&rec.ExecutionAccuracy, &rec.AnswerRelevancy, &rec.AnswerCorrectness,
			&rec.GeneratedQuery, &rec.ExpectedQuery, &rec.GeneratedAnswer, &rec.ExpectedAnswer,
			&kind, &rec.JudgeFailures,
		); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation score: %w", err)
		}
		rec.ErrorKind = models.ErrorKind(kind)
		report.Records = append(report.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluation scores: %w", err)
	}

	return report, nil
}

// ListRecent returns the newest runs first, without score records.
func (r *evaluationRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.EvaluationReport, error) {
	query := `
		SELECT id, strategy, started_at, completed_at, row_count,
		       avg_query_relevancy, avg_query_correctness,
		       avg_answer_relevancy, avg_answer_correctness,
		       exact_match_rate, execution_accuracy_rate, errors
		FROM evaluation_runs
		ORDER BY completed_at DESC
		LIMIT $1`
	return r.list(ctx, query, clampLimit(limit))
}

// ListByStrategy returns the newest runs of one strategy, without score records.
func (r *evaluationRunRepository) ListByStrategy(ctx context.Context, strategy string, limit int) ([]*models.EvaluationReport, error) {
	query := `
		SELECT id, strategy, started_at, completed_at, row_count,
		       avg_query_relevancy, avg_query_correctness,
		       avg_answer_relevancy, avg_answer_correctness,
		       exact_match_rate, execution_accuracy_rate, errors
		FROM evaluation_runs
		WHERE strategy = $1
		ORDER BY completed_at DESC
		LIMIT $2`
	return r.list(ctx, query, strategy, clampLimit(limit))
}

func (r *evaluationRunRepository) list(ctx context.Context, query string, args ...any) ([]*models.EvaluationReport, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluation runs: %w", err)
	}
	defer rows.Close()

	reports := make([]*models.EvaluationReport, 0)
	for rows.Next() {
		report, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation run: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluation runs: %w", err)
	}
	return reports, nil
}

func scanRun(row pgx.Row) (*models.EvaluationReport, error) {
	var report models.EvaluationReport
	var qr, qc, ar, ac, em, ea *float64
	var errorsJSON []byte

	if err := row.Scan(
		&report.ID, &report.Strategy, &report.StartedAt, &report.CompletedAt, &report.Rows,
		&qr, &qc, &ar, &ac, &em, &ea, &errorsJSON,
	); err != nil {
		return nil, err
	}

	report.AvgQueryRelevancy = fromNullable(qr)
	report.AvgQueryCorrectness = fromNullable(qc)
	report.AvgAnswerRelevancy = fromNullable(ar)
	report.AvgAnswerCorrectness = fromNullable(ac)
	report.ExactMatchRate = fromNullable(em)
	report.ExecutionAccuracyRate = fromNullable(ea)

	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &report.Errors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal error counts: %w", err)
		}
	}
	return &report, nil
}

// nullable stores undefined averages as NULL.
func nullable(a models.Average) *float64 {
	if !a.Defined() {
		return nil
	}
	v := a.Value
	return &v
}

// fromNullable restores an average. The contributing count is not stored, so a
// defined value comes back with Count 1.
func fromNullable(v *float64) models.Average {
	if v == nil {
		return models.Average{}
	}
	return models.Average{Value: *v, Count: 1}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return defaultListLimit
	}
	return limit
}
