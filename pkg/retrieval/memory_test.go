package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

func TestMemoryStore_SearchOrdersByCosine(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Reset(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []Entry{
		{ID: 1, Vector: []float32{1, 0}, Example: models.RetrievedExample{Question: "east"}},
		{ID: 2, Vector: []float32{0, 1}, Example: models.RetrievedExample{Question: "north"}},
		{ID: 3, Vector: []float32{1, 1}, Example: models.RetrievedExample{Question: "north-east"}},
	}))

	got, err := s.Search(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "east", got[0].Question)
	assert.Equal(t, "north-east", got[1].Question)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestMemoryStore_KLargerThanStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, []Entry{{ID: 1, Vector: []float32{1}}}))

	got, err := s.Search(ctx, []float32{1}, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.Search(ctx, []float32{1}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_UpsertReplacesAndValidatesDim(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Reset(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []Entry{{ID: 7, Vector: []float32{1, 0}, Example: models.RetrievedExample{Question: "old"}}}))
	require.NoError(t, s.Upsert(ctx, []Entry{{ID: 7, Vector: []float32{0, 1}, Example: models.RetrievedExample{Question: "new"}}}))
	assert.Equal(t, 1, s.Len())

	err := s.Upsert(ctx, []Entry{{ID: 8, Vector: []float32{1, 2, 3}}})
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{2, 0}, []float32{5, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, float32(0), cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, float32(0), cosine([]float32{1}, []float32{1, 0}))
}
