package judge

import (
	"context"
	"sync"
)

// MockJudge is a configurable Judge for tests. Safe for concurrent use.
type MockJudge struct {
	// RelevancyFunc handles Relevancy. If nil, returns 1.
	RelevancyFunc func(ctx context.Context, c Case) (float64, error)

	// CorrectnessFunc handles Correctness. If nil, returns 1.
	CorrectnessFunc func(ctx context.Context, c Case) (float64, error)

	mu    sync.Mutex
	cases map[Metric][]Case
}

func (m *MockJudge) Relevancy(ctx context.Context, c Case) (float64, error) {
	m.record(MetricRelevancy, c)
	if m.RelevancyFunc != nil {
		return m.RelevancyFunc(ctx, c)
	}
	return 1, nil
}

func (m *MockJudge) Correctness(ctx context.Context, c Case) (float64, error) {
	m.record(MetricCorrectness, c)
	if m.CorrectnessFunc != nil {
		return m.CorrectnessFunc(ctx, c)
	}
	return 1, nil
}

func (m *MockJudge) record(metric Metric, c Case) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cases == nil {
		m.cases = make(map[Metric][]Case)
	}
	m.cases[metric] = append(m.cases[metric], c)
}

// Cases returns the cases judged for metric. Order follows call order.
func (m *MockJudge) Cases(metric Metric) []Case {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Case(nil), m.cases[metric]...)
}

// Calls returns the total number of judge calls.
func (m *MockJudge) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, cs := range m.cases {
		n += len(cs)
	}
	return n
}

var _ Judge = (*MockJudge)(nil)
