package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/dataset"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/eval"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/generation"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/graph"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/judge"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/llm"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/retrieval"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/scoring"
)

const testSentinel = "Cypher Query: "

// mockRunRepository records created runs.
type mockRunRepository struct {
	mu        sync.Mutex
	created   []*models.EvaluationReport
	createErr error
}

func (m *mockRunRepository) Create(ctx context.Context, r *models.EvaluationReport) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, r)
	return nil
}

func (m *mockRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EvaluationReport, error) {
	for _, r := range m.created {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.EvaluationReport, error) {
	return m.created, nil
}

func (m *mockRunRepository) ListByStrategy(ctx context.Context, strategy string, limit int) ([]*models.EvaluationReport, error) {
	var out []*models.EvaluationReport
	for _, r := range m.created {
		if r.Strategy == strategy {
			out = append(out, r)
		}
	}
	return out, nil
}

type recordedReports struct {
	mu      sync.Mutex
	reports []*models.EvaluationReport
}

func (r *recordedReports) SetReport(rep *models.EvaluationReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func splitFixture(t *testing.T) dataset.Files {
	t.Helper()
	dir := t.TempDir()
	files := dataset.NewFiles(dir, "train_data.csv", "test_data.csv")
	require.NoError(t, dataset.WriteExamples(files.Train, []models.TestExample{
		{Question: "Where was shipment 5678 dispatched from?", ExpectedQuery: "MATCH (s:Shipment {tracking_number: '5678'})-[:DISPATCHED_FROM]->(l) RETURN l.name", ExpectedAnswer: `[{"l.name":"New York"}]`},
		{Question: "Which courier handles shipment 3141?", ExpectedQuery: "MATCH (s:Shipment {tracking_number: '3141'})-[:ASSIGNED_TO]->(c) RETURN c.name", ExpectedAnswer: `[{"c.name":"SwiftExpress"}]`},
	}))
	require.NoError(t, dataset.WriteExamples(files.Test, []models.TestExample{
		{Question: "What is the status of shipment 1234?", ExpectedQuery: "MATCH (s:Shipment {tracking_number: '1234'}) RETURN s.status", ExpectedAnswer: `[{"s.status":"In Transit"}]`},
	}))
	return files
}

// statusGenerator always answers with the status query for shipment 1234.
func statusGenerator() *llm.MockLLMClient {
	return llm.NewStaticMockLLMClient(testSentinel + "MATCH (s:Shipment {tracking_number: '1234'}) RETURN s.status")
}

func newTestEvaluationService(t *testing.T, files dataset.Files, deps EvaluationDeps) (EvaluationService, string) {
	t.Helper()
	out := t.TempDir()
	if deps.Runner == nil {
		queries := &graph.MockQueryService{
			ExecuteFunc: func(context.Context, string) ([]map[string]any, error) {
				return []map[string]any{{"s.status": "In Transit"}}, nil
			},
		}
		deps.Runner = eval.NewRunner(queries, scoring.NewEngine(&judge.MockJudge{}, zap.NewNop()),
			eval.RunnerConfig{Workers: 2, ExampleTimeout: time.Second}, zap.NewNop())
	}
	if deps.Generator == nil {
		deps.Generator = statusGenerator()
	}
	if deps.Schema == nil {
		deps.Schema = &graph.MockQueryService{}
	}
	settings := EvaluationSettings{
		Files:       files,
		OutputDir:   out,
		SummaryFile: "evaluation_summary.txt",
		TopK:        1,
		Generation:  generation.Options{Sentinel: testSentinel},
	}
	return NewEvaluationService(settings, deps, zap.NewNop()), out
}

func TestEvaluationService_Evaluate(t *testing.T) {
	files := splitFixture(t)
	runs := &mockRunRepository{}
	recorder := &recordedReports{}
	svc, out := newTestEvaluationService(t, files, EvaluationDeps{Runs: runs, Recorder: recorder})

	reports, err := svc.Evaluate(context.Background(), []string{models.StrategyFewShot, models.StrategyNoContext})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, models.StrategyFewShot, reports[0].Strategy, "reports keep the requested order")
	assert.Equal(t, models.StrategyNoContext, reports[1].Strategy)
	for _, r := range reports {
		assert.Equal(t, 1, r.Rows)
		assert.Equal(t, 1.0, r.ExactMatchRate.Value)
		assert.True(t, r.ExecutionAccuracyRate.Defined())
	}

	assert.FileExists(t, filepath.Join(out, "few_shot_results.csv"))
	assert.FileExists(t, filepath.Join(out, "no_context_results.csv"))
	summary, err := os.ReadFile(filepath.Join(out, "evaluation_summary.txt"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(summary), "Evaluation Summary:"))

	assert.Len(t, runs.created, 2)
	assert.Len(t, recorder.reports, 2)
}

func TestEvaluationService_RAGBuildsIndexFromTrainSplit(t *testing.T) {
	files := splitFixture(t)

	embedder := &llm.MockEmbedder{
		CreateEmbeddingFunc: func(_ context.Context, input string) ([]float32, error) {
			if strings.Contains(input, "5678") {
				return []float32{1, 0}, nil
			}
			return []float32{0, 1}, nil
		},
	}
	index := retrieval.NewIndex(embedder, retrieval.NewMemoryStore(), zap.NewNop())

	var prompts []string
	var mu sync.Mutex
	generator := llm.NewMockLLMClient()
	generator.GenerateResponseFunc = func(_ context.Context, prompt, _ string, _ float64) (*llm.GenerateResponseResult, error) {
		mu.Lock()
		prompts = append(prompts, prompt)
		mu.Unlock()
		return &llm.GenerateResponseResult{Content: testSentinel + "MATCH (s:Shipment {tracking_number: '1234'}) RETURN s.status"}, nil
	}

	svc, out := newTestEvaluationService(t, files, EvaluationDeps{Generator: generator, Index: index})

	reports, err := svc.Evaluate(context.Background(), []string{models.StrategyRAG})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.Equal(t, 3, embedder.Calls(), "two training documents plus one test question")
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Q: Which courier handles shipment 3141?", "nearest training example is in context")
	assert.NotContains(t, prompts[0], "What is the status of shipment 1234?\nCypher:", "test rows never enter the index")
	assert.FileExists(t, filepath.Join(out, "rag_evaluation_results.csv"))
}

func TestEvaluationService_Validation(t *testing.T) {
	files := splitFixture(t)
	generator := statusGenerator()
	svc, _ := newTestEvaluationService(t, files, EvaluationDeps{Generator: generator})

	_, err := svc.Evaluate(context.Background(), nil)
	assert.Error(t, err)

	_, err = svc.Evaluate(context.Background(), []string{models.StrategyNoContext, "zero_shot"})
	assert.ErrorContains(t, err, "unknown strategy")

	_, err = svc.Evaluate(context.Background(), []string{models.StrategyRAG})
	assert.ErrorContains(t, err, "requires a retrieval index")

	assert.Equal(t, 0, generator.GenerateResponseCalls(), "validation happens before any run")
}

func TestEvaluationService_MissingSplit(t *testing.T) {
	files := dataset.NewFiles(t.TempDir(), "train_data.csv", "test_data.csv")
	svc, _ := newTestEvaluationService(t, files, EvaluationDeps{})

	_, err := svc.Evaluate(context.Background(), []string{models.StrategyNoContext})
	assert.ErrorContains(t, err, "failed to load dataset split")
}

func TestEvaluationService_PersistFailureIsReturned(t *testing.T) {
	files := splitFixture(t)
	runs := &mockRunRepository{createErr: errors.New("connection refused")}
	svc, _ := newTestEvaluationService(t, files, EvaluationDeps{Runs: runs})

	_, err := svc.Evaluate(context.Background(), []string{models.StrategyNoContext})
	assert.ErrorContains(t, err, "failed to persist evaluation run")
}

func TestEvaluationService_RunErrorStops(t *testing.T) {
	files := splitFixture(t)
	runner := &failingRunner{err: context.Canceled}
	svc, _ := newTestEvaluationService(t, files, EvaluationDeps{Runner: runner})

	_, err := svc.Evaluate(context.Background(), []string{models.StrategyNoContext, models.StrategyFewShot})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, runner.calls)
}

type failingRunner struct {
	err   error
	calls int
}

func (f *failingRunner) Run(context.Context, generation.Strategy, []models.TestExample) (*models.EvaluationReport, error) {
	f.calls++
	return nil, f.err
}
