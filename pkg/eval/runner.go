package eval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/generation"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/graph"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// Scorer turns a generated row into a ScoreRecord.
type Scorer interface {
	Score(ctx context.Context, example models.TestExample, result models.GenerationResult) models.ScoreRecord
}

// Observer is told about every finished example.
type Observer interface {
	ObserveExample(strategy string, kind models.ErrorKind, timeout bool, elapsed time.Duration)
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Workers        int
	ExampleTimeout time.Duration // bounds generation plus execution; zero disables
}

// Runner evaluates one strategy at a time against a fixed test set.
type Runner struct {
	queries  graph.QueryService
	scorer   Scorer
	pool     *WorkerPool
	timeout  time.Duration
	observer Observer
	logger   *zap.Logger
	now      func() time.Time
}

func NewRunner(queries graph.QueryService, scorer Scorer, cfg RunnerConfig, logger *zap.Logger) *Runner {
	return &Runner{
		queries: queries,
		scorer:  scorer,
		pool:    NewWorkerPool(WorkerPoolConfig{MaxConcurrent: cfg.Workers}, logger),
		timeout: cfg.ExampleTimeout,
		logger:  logger.Named("eval"),
		now:     time.Now,
	}
}

// SetObserver registers an Observer. Call before Run.
func (r *Runner) SetObserver(o Observer) {
	r.observer = o
}

// Run generates, executes and scores every example exactly once.
// Per-row failures are recorded in the report. Duplicate questions, results that
// cannot be joined back to an example, and cancellation of ctx abort the run.
func (r *Runner) Run(ctx context.Context, strategy generation.Strategy, examples []models.TestExample) (*models.EvaluationReport, error) {
	byQuestion, err := indexExamples(examples)
	if err != nil {
		return nil, err
	}

	name := strategy.Name()
	logger := r.logger.With(zap.String("strategy", name))
	started := r.now()
	logger.Info("Starting evaluation",
		zap.Int("examples", len(examples)),
		zap.Int("workers", r.pool.MaxConcurrent()))

	genItems := make([]WorkItem[models.GenerationResult], 0, len(examples))
	for _, ex := range examples {
		genItems = append(genItems, WorkItem[models.GenerationResult]{
			ID: ex.Question,
			Execute: func(ctx context.Context) (models.GenerationResult, error) {
				return r.generate(ctx, strategy, ex), nil
			},
		})
	}
	generated := Process(ctx, r.pool, genItems, progressLogger(logger, "Generated"))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation of %s cancelled: %w", name, err)
	}

	results, err := joinResults(byQuestion, generated)
	if err != nil {
		return nil, err
	}

	scoreItems := make([]WorkItem[models.ScoreRecord], 0, len(examples))
	for _, ex := range examples {
		res := results[ex.Question]
		scoreItems = append(scoreItems, WorkItem[models.ScoreRecord]{
			ID: ex.Question,
			Execute: func(ctx context.Context) (models.ScoreRecord, error) {
				return r.scorer.Score(ctx, ex, res), nil
			},
		})
	}
	scored := Process(ctx, r.pool, scoreItems, progressLogger(logger, "Scored"))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation of %s cancelled: %w", name, err)
	}

	// Barrier: every record is resolved before anything is aggregated.
	recordByQuestion := make(map[string]models.ScoreRecord, len(scored))
	for _, s := range scored {
		recordByQuestion[s.ID] = s.Result
	}
	records := make([]models.ScoreRecord, 0, len(examples))
	ordered := make([]models.GenerationResult, 0, len(examples))
	for _, ex := range examples {
		records = append(records, recordByQuestion[ex.Question])
		ordered = append(ordered, results[ex.Question])
	}

	report := Aggregate(name, records, ordered)
	report.ID = uuid.New()
	report.StartedAt = started
	report.CompletedAt = r.now()

	logger.Info("Evaluation complete",
		zap.Int("rows", report.Rows),
		zap.Int("row_errors", report.Errors.Rows()),
		zap.Int("timeouts", report.Errors.Timeouts),
		zap.Int("judge_unavailable", report.Errors.JudgeUnavailable),
		zap.Duration("elapsed", report.CompletedAt.Sub(started)))

	return report, nil
}

// generate runs one example under the per-example deadline. Errors are recorded
// on the result, never returned.
func (r *Runner) generate(ctx context.Context, strategy generation.Strategy, ex models.TestExample) (res models.GenerationResult) {
	start := r.now()
	res.Question = ex.Question
	defer func() {
		res.Duration = r.now().Sub(start)
		if r.observer != nil {
			r.observer.ObserveExample(strategy.Name(), res.ErrorKind, res.Timeout, res.Duration)
		}
	}()

	exCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		exCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	timedOut := func() bool {
		return errors.Is(exCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	}

	query, err := generateQuery(exCtx, strategy, ex.Question)
	if err != nil {
		// A deadline hit while generating still counts as an execution timeout.
		if timedOut() {
			err = &apperrors.QueryExecutionError{Cause: err, Timeout: true}
		}
		r.fail(&res, err)
		return res
	}
	res.GeneratedQuery = query

	records, err := r.queries.Execute(exCtx, query)
	if err != nil {
		var qe *apperrors.QueryExecutionError
		if !errors.As(err, &qe) {
			qe = &apperrors.QueryExecutionError{Query: query, Cause: err}
		}
		if timedOut() {
			qe.Timeout = true
		}
		r.fail(&res, qe)
		return res
	}
	res.Records = records
	return res
}

func generateQuery(ctx context.Context, strategy generation.Strategy, question string) (string, error) {
	bundle, err := strategy.BuildContext(ctx, question)
	if err != nil {
		return "", err
	}
	return strategy.Generate(ctx, question, bundle)
}

func (r *Runner) fail(res *models.GenerationResult, err error) {
	res.Err = err
	res.ErrorKind = classify(err)
	var qe *apperrors.QueryExecutionError
	if errors.As(err, &qe) {
		res.Timeout = qe.Timeout
	}
	r.logger.Debug("Example failed",
		zap.String("question", res.Question),
		zap.String("kind", string(res.ErrorKind)),
		zap.Error(err))
}

func classify(err error) models.ErrorKind {
	switch {
	case errors.Is(err, apperrors.ErrMalformedGeneration):
		return models.ErrorKindMalformedGeneration
	case errors.Is(err, apperrors.ErrQueryExecution):
		return models.ErrorKindQueryExecution
	default:
		return models.ErrorKindGeneration
	}
}

func indexExamples(examples []models.TestExample) (map[string]models.TestExample, error) {
	byQuestion := make(map[string]models.TestExample, len(examples))
	for _, ex := range examples {
		if _, dup := byQuestion[ex.Question]; dup {
			return nil, &apperrors.DatasetIntegrityError{Question: ex.Question, Reason: "duplicate question in test set"}
		}
		byQuestion[ex.Question] = ex
	}
	return byQuestion, nil
}

// joinResults matches every result to its example by question.
func joinResults(byQuestion map[string]models.TestExample, generated []WorkResult[models.GenerationResult]) (map[string]models.GenerationResult, error) {
	results := make(map[string]models.GenerationResult, len(generated))
	for _, g := range generated {
		if _, ok := byQuestion[g.Result.Question]; !ok {
			return nil, &apperrors.DatasetIntegrityError{Question: g.Result.Question, Reason: "result has no matching test example"}
		}
		results[g.Result.Question] = g.Result
	}
	for q := range byQuestion {
		if _, ok := results[q]; !ok {
			return nil, &apperrors.DatasetIntegrityError{Question: q, Reason: "test example produced no result"}
		}
	}
	return results, nil
}

func progressLogger(logger *zap.Logger, verb string) func(completed, total int) {
	step := 10
	return func(completed, total int) {
		if completed == total || completed%step == 0 {
			logger.Info(verb, zap.Int("completed", completed), zap.Int("total", total))
		}
	}
}
