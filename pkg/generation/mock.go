package generation

import (
	"context"
	"sync"
)

// MockStrategy is a configurable Strategy for tests.
type MockStrategy struct {
	// StrategyName is returned by Name. Defaults to "mock".
	StrategyName string

	// BuildContextFunc handles BuildContext. If nil, returns an empty bundle.
	BuildContextFunc func(ctx context.Context, question string) (ContextBundle, error)

	// GenerateFunc handles Generate. If nil, returns an empty query.
	GenerateFunc func(ctx context.Context, question string, bundle ContextBundle) (string, error)

	mu        sync.Mutex
	questions []string
}

func (m *MockStrategy) Name() string {
	if m.StrategyName == "" {
		return "mock"
	}
	return m.StrategyName
}

func (m *MockStrategy) BuildContext(ctx context.Context, question string) (ContextBundle, error) {
	if m.BuildContextFunc != nil {
		return m.BuildContextFunc(ctx, question)
	}
	return ContextBundle{}, nil
}

func (m *MockStrategy) Generate(ctx context.Context, question string, bundle ContextBundle) (string, error) {
	m.mu.Lock()
	m.questions = append(m.questions, question)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, question, bundle)
	}
	return "", nil
}

// GeneratedQuestions returns the questions passed to Generate, in call order.
func (m *MockStrategy) GeneratedQuestions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.questions...)
}

var _ Strategy = (*MockStrategy)(nil)
