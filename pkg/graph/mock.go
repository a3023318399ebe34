package graph

import (
	"context"
	"sync"
)

// MockQueryService is a configurable QueryService and SchemaProvider for tests.
type MockQueryService struct {
	// ExecuteFunc handles Execute. If nil, returns no records.
	ExecuteFunc func(ctx context.Context, query string) ([]map[string]any, error)

	// GetSchemaFunc handles GetSchema. If nil, returns an empty schema.
	GetSchemaFunc func(ctx context.Context) (*Schema, error)

	mu            sync.Mutex
	executeCalls  []string
	getSchemaHits int
}

// Execute implements QueryService.
func (m *MockQueryService) Execute(ctx context.Context, query string) ([]map[string]any, error) {
	m.mu.Lock()
	m.executeCalls = append(m.executeCalls, query)
	m.mu.Unlock()
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, query)
	}
	return []map[string]any{}, nil
}

// GetSchema implements SchemaProvider.
func (m *MockQueryService) GetSchema(ctx context.Context) (*Schema, error) {
	m.mu.Lock()
	m.getSchemaHits++
	m.mu.Unlock()
	if m.GetSchemaFunc != nil {
		return m.GetSchemaFunc(ctx)
	}
	return &Schema{}, nil
}

// ExecutedQueries returns the queries passed to Execute, in call order.
func (m *MockQueryService) ExecutedQueries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.executeCalls...)
}

// GetSchemaCalls returns how many times GetSchema ran.
func (m *MockQueryService) GetSchemaCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getSchemaHits
}

var (
	_ QueryService   = (*MockQueryService)(nil)
	_ SchemaProvider = (*MockQueryService)(nil)
)
