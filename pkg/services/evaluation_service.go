package services

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/dataset"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/generation"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/graph"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/llm"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/report"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/repositories"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/retrieval"
)

// StrategyRunner evaluates one strategy over a test set.
type StrategyRunner interface {
	Run(ctx context.Context, strategy generation.Strategy, examples []models.TestExample) (*models.EvaluationReport, error)
}

// ReportRecorder receives every finished report.
type ReportRecorder interface {
	SetReport(r *models.EvaluationReport)
}

// EvaluationService runs strategies over the test split and records the results.
type EvaluationService interface {
	// Evaluate runs the named strategies in order and returns their reports in the same order.
	Evaluate(ctx context.Context, strategies []string) ([]*models.EvaluationReport, error)
}

// EvaluationSettings locates inputs and outputs of a run.
type EvaluationSettings struct {
	Files       dataset.Files
	OutputDir   string
	SummaryFile string
	TopK        int
	Generation  generation.Options
}

// EvaluationDeps are the collaborators of the evaluation service.
// Index, Runs and Recorder are optional: without Index the rag strategy is
// unavailable, without Runs reports are not persisted.
type EvaluationDeps struct {
	Runner    StrategyRunner
	Generator llm.LLMClient
	Schema    graph.SchemaProvider
	Index     *retrieval.Index
	Runs      repositories.EvaluationRunRepository
	Recorder  ReportRecorder
}

type evaluationService struct {
	settings EvaluationSettings
	deps     EvaluationDeps
	logger   *zap.Logger
}

func NewEvaluationService(settings EvaluationSettings, deps EvaluationDeps, logger *zap.Logger) EvaluationService {
	return &evaluationService{
		settings: settings,
		deps:     deps,
		logger:   logger.Named("evaluation-service"),
	}
}

var _ EvaluationService = (*evaluationService)(nil)

func (s *evaluationService) Evaluate(ctx context.Context, strategies []string) ([]*models.EvaluationReport, error) {
	if len(strategies) == 0 {
		return nil, fmt.Errorf("no strategies requested")
	}
	for _, name := range strategies {
		if err := s.checkStrategy(name); err != nil {
			return nil, err
		}
	}

	train, test, err := dataset.Load(s.settings.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset split: %w", err)
	}
	s.logger.Info("Loaded dataset split",
		zap.Int("train", len(train)),
		zap.Int("test", len(test)),
		zap.Strings("strategies", strategies))

	indexed := false
	reports := make([]*models.EvaluationReport, 0, len(strategies))
	for _, name := range strategies {
		if name == models.StrategyRAG && !indexed {
			if err := s.deps.Index.Build(ctx, train); err != nil {
				return nil, fmt.Errorf("failed to build retrieval index: %w", err)
			}
			indexed = true
		}

		r, err := s.deps.Runner.Run(ctx, s.strategy(name), test)
		if err != nil {
			return nil, fmt.Errorf("evaluation of %s failed: %w", name, err)
		}
		if err := s.record(ctx, r); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (s *evaluationService) checkStrategy(name string) error {
	switch name {
	case models.StrategyNoContext, models.StrategyFewShot:
		return nil
	case models.StrategyRAG:
		if s.deps.Index == nil {
			return fmt.Errorf("strategy %s requires a retrieval index", name)
		}
		return nil
	default:
		return fmt.Errorf("unknown strategy %q", name)
	}
}

func (s *evaluationService) strategy(name string) generation.Strategy {
	switch name {
	case models.StrategyFewShot:
		return generation.NewFewShot(s.deps.Generator, s.deps.Schema, s.settings.Generation, s.logger)
	case models.StrategyRAG:
		return generation.NewRetrievalAugmented(s.deps.Generator, s.deps.Index, s.settings.TopK, s.settings.Generation, s.logger)
	default:
		return generation.NewNoContext(s.deps.Generator, s.settings.Generation, s.logger)
	}
}

// record writes the CSV and summary, persists the run and publishes metrics.
func (s *evaluationService) record(ctx context.Context, r *models.EvaluationReport) error {
	path, err := report.WriteResultsFile(s.settings.OutputDir, r)
	if err != nil {
		return err
	}
	summary := filepath.Join(s.settings.OutputDir, s.settings.SummaryFile)
	if err := report.AppendSummary(summary, r); err != nil {
		return err
	}
	s.logger.Info("Wrote evaluation results",
		zap.String("strategy", r.Strategy),
		zap.String("results", path),
		zap.String("summary", summary))

	if s.deps.Runs != nil {
		if err := s.deps.Runs.Create(ctx, r); err != nil {
			s.logger.Error("Failed to persist evaluation run",
				zap.String("run_id", r.ID.String()),
				zap.Error(err))
			return fmt.Errorf("failed to persist evaluation run: %w", err)
		}
	}
	if s.deps.Recorder != nil {
		s.deps.Recorder.SetReport(r)
	}
	return nil
}
