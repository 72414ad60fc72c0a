// Package memory implements content.Store in process memory. It backs
// tests and small single-node setups.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/wikigraph/backend/pkg/ai"
	"github.com/wikigraph/backend/pkg/content"
)

type storedChunk struct {
	chunk     content.Chunk
	embedding []float32
}

// Store keeps chunks and embeddings in maps. Safe for concurrent use.
type Store struct {
	aiClient ai.GraphAIClient

	mu     sync.Mutex
	chunks map[string]storedChunk
}

func New(aiClient ai.GraphAIClient) *Store {
	return &Store{
		aiClient: aiClient,
		chunks:   make(map[string]storedChunk),
	}
}

func (s *Store) SaveChunks(ctx context.Context, chunks []content.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	inputs := make([][]byte, len(chunks))
	for i := range chunks {
		inputs[i] = []byte(chunks[i].Text)
	}
	embeddings, err := s.aiClient.GenerateEmbeddings(ctx, inputs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, chunk := range chunks {
		s.chunks[chunk.ID] = storedChunk{chunk: chunk, embedding: embeddings[i]}
	}
	return nil
}

func (s *Store) GetByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	texts := make(map[string]string, len(ids))
	for _, id := range ids {
		if stored, ok := s.chunks[id]; ok {
			texts[id] = stored.chunk.Text
		}
	}
	return texts, nil
}

func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]content.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type scored struct {
		chunk content.Chunk
		score float64
	}
	candidates := make([]scored, 0, len(s.chunks))
	for _, stored := range s.chunks {
		candidates = append(candidates, scored{
			chunk: stored.chunk,
			score: cosineSimilarity(embedding, stored.embedding),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].chunk.ID < candidates[j].chunk.ID
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	chunks := make([]content.Chunk, 0, limit)
	for _, candidate := range candidates[:limit] {
		chunks = append(chunks, candidate.chunk)
	}
	return chunks, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return -1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return -1
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
