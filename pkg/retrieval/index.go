package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/llm"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// embedBatchSize bounds a single embedding request.
const embedBatchSize = 64

// Index embeds training examples into a VectorStore and retrieves the nearest ones.
type Index struct {
	embedder llm.Embedder
	store    VectorStore
	logger   *zap.Logger
}

func NewIndex(embedder llm.Embedder, store VectorStore, logger *zap.Logger) *Index {
	return &Index{
		embedder: embedder,
		store:    store,
		logger:   logger.Named("retrieval"),
	}
}

// Build replaces the store contents with the given training examples.
// The question, query and answer are embedded together as one document.
func (x *Index) Build(ctx context.Context, examples []models.TestExample) error {
	if len(examples) == 0 {
		return fmt.Errorf("no training examples to index")
	}

	var entries []Entry
	for start := 0; start < len(examples); start += embedBatchSize {
		batch := examples[start:min(start+embedBatchSize, len(examples))]
		docs := make([]string, 0, len(batch))
		for _, ex := range batch {
			docs = append(docs, FormatDocument(toRetrieved(ex)))
		}

		vectors, err := x.embedder.CreateEmbeddings(ctx, docs)
		if err != nil {
			return fmt.Errorf("failed to embed training examples: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(batch))
		}

		for i, ex := range batch {
			entries = append(entries, Entry{
				ID:      uint64(start + i), // #nosec G115 -- non-negative index
				Vector:  vectors[i],
				Example: toRetrieved(ex),
			})
		}
	}

	if err := x.store.Reset(ctx, len(entries[0].Vector)); err != nil {
		return err
	}
	if err := x.store.Upsert(ctx, entries); err != nil {
		return err
	}

	x.logger.Info("Indexed training examples", zap.Int("count", len(entries)))
	return nil
}

// Retrieve returns the k training examples most similar to question.
func (x *Index) Retrieve(ctx context.Context, question string, k int) ([]models.RetrievedExample, error) {
	vector, err := x.embedder.CreateEmbedding(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	return x.store.Search(ctx, vector, k)
}

// Close releases the underlying store.
func (x *Index) Close() error {
	return x.store.Close()
}

func toRetrieved(ex models.TestExample) models.RetrievedExample {
	return models.RetrievedExample{
		Question: ex.Question,
		Cypher:   ex.ExpectedQuery,
		Answer:   ex.ExpectedAnswer,
	}
}
