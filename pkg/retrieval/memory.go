package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// MemoryStore is an exact cosine-similarity store kept in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	dim     int
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Reset(_ context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dim = dim
	s.entries = nil
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if s.dim > 0 && len(e.Vector) != s.dim {
			return fmt.Errorf("vector for %q has %d dimensions, want %d", e.Example.Question, len(e.Vector), s.dim)
		}
		replaced := false
		for i := range s.entries {
			if s.entries[i].ID == e.ID {
				s.entries[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			s.entries = append(s.entries, e)
		}
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, vector []float32, k int) ([]models.RetrievedExample, error) {
	if k <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]models.RetrievedExample, 0, len(s.entries))
	for _, e := range s.entries {
		ex := e.Example
		ex.Score = cosine(vector, e.Vector)
		scored = append(scored, ex)
	}

	// Ties keep insertion order so results are stable across runs.
	idx := make([]int, len(scored))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scored[idx[a]].Score > scored[idx[b]].Score
	})

	out := make([]models.RetrievedExample, 0, min(k, len(idx)))
	for _, i := range idx[:min(k, len(idx))] {
		out = append(out, scored[i])
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
