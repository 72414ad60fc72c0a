// Package pgx implements content.Store on PostgreSQL with pgvector for
// similarity search.
package pgx

import (
	"context"
	"fmt"
	"sync"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/wikigraph/backend/internal/util"
	"github.com/wikigraph/backend/pkg/ai"
	"github.com/wikigraph/backend/pkg/content"
	"github.com/wikigraph/backend/pkg/logger"
	"github.com/wikigraph/backend/pkg/wiki"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// ContentStorage stores chunks in the chunks table. Embeddings are
// generated at save time through the AI client, so writers never handle
// vectors themselves.
type ContentStorage struct {
	conn     pgxIConn
	aiClient ai.GraphAIClient
	dbLock   sync.Mutex
}

// batch size per embedding request and insert transaction
const saveChunkSize = 250

func NewContentStorage(conn pgxIConn, aiClient ai.GraphAIClient) *ContentStorage {
	return &ContentStorage{
		conn:     conn,
		aiClient: aiClient,
	}
}

// SaveChunks upserts the chunks in batches, one transaction per batch.
// Each batch embeds its texts in a single AI request.
func (s *ContentStorage) SaveChunks(ctx context.Context, chunks []content.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return content.ChunkRange(len(chunks), saveChunkSize, func(start, end int) error {
		batch := chunks[start:end]
		logger.Debug("[Content] Saving chunk batch", "chunks", len(batch))

		inputs := make([][]byte, len(batch))
		for i := range batch {
			inputs[i] = []byte(batch[i].Text)
		}
		embeddings, err := s.aiClient.GenerateEmbeddings(ctx, inputs)
		if err != nil {
			return fmt.Errorf("failed to embed chunk batch: %w", err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embedding count mismatch: got %d want %d", len(embeddings), len(batch))
		}

		s.dbLock.Lock()
		defer s.dbLock.Unlock()

		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		for i, chunk := range batch {
			if _, err := tx.Exec(ctx, `
				INSERT INTO chunks (id, text, title, h2, h3, h4, embedding)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE SET
					text = EXCLUDED.text,
					title = EXCLUDED.title,
					h2 = EXCLUDED.h2,
					h3 = EXCLUDED.h3,
					h4 = EXCLUDED.h4,
					embedding = EXCLUDED.embedding
			`,
				chunk.ID,
				util.SanitizePostgresText(chunk.Text),
				chunk.Meta.Title,
				chunk.Meta.H2,
				chunk.Meta.H3,
				chunk.Meta.H4,
				pgvector.NewVector(embeddings[i]),
			); err != nil {
				return fmt.Errorf("failed to upsert chunk %q: %w", chunk.ID, err)
			}
		}
		return tx.Commit(ctx)
	})
}

// GetByIDs returns chunk texts keyed by id. Unknown ids are absent.
func (s *ContentStorage) GetByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	rows, err := s.conn.Query(ctx, `
		SELECT id, text FROM chunks WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	defer rows.Close()

	texts := make(map[string]string, len(ids))
	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, err
		}
		texts[id] = text
	}
	return texts, rows.Err()
}

// SearchSimilar returns up to limit chunks by cosine distance to the
// embedding, nearest first.
func (s *ContentStorage) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]content.Chunk, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, text, title, h2, h3, h4
		FROM chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var chunks []content.Chunk
	for rows.Next() {
		var chunk content.Chunk
		var meta wiki.ChunkMeta
		if err := rows.Scan(&chunk.ID, &chunk.Text, &meta.Title, &meta.H2, &meta.H3, &meta.H4); err != nil {
			return nil, err
		}
		chunk.Meta = meta
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
