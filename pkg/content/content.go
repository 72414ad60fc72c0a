// Package content stores chunk texts and their embeddings. The graph
// knows only chunk ids and ordering; the texts behind those ids live
// here, searchable by vector similarity.
package content

import (
	"context"

	"github.com/wikigraph/backend/pkg/wiki"
)

// Chunk is a stored unit of page text with its heading-trail metadata.
type Chunk struct {
	ID   string
	Text string
	Meta wiki.ChunkMeta
}

// Store persists chunk contents and serves the similarity search that
// seeds retrieval.
type Store interface {
	// SaveChunks upserts the chunks, embedding their texts. Re-saving
	// the same id overwrites text, metadata and embedding.
	SaveChunks(ctx context.Context, chunks []Chunk) error

	// GetByIDs returns texts keyed by chunk id. Unknown ids are simply
	// absent from the result.
	GetByIDs(ctx context.Context, ids []string) (map[string]string, error)

	// SearchSimilar returns up to limit chunks nearest to the embedding.
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]Chunk, error)
}

// ChunkRange calls fn over [start, end) windows of at most size
// elements, stopping at the first error.
func ChunkRange(total int, size int, fn func(start, end int) error) error {
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}
