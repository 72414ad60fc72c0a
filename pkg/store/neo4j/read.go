package neo4j

import (
	"context"
	"fmt"

	"github.com/wikigraph/backend/pkg/store"
	"github.com/wikigraph/backend/pkg/wiki"
)

// LocatePage walks containment edges upward from a chunk to the unique
// Page ancestor. A chunk that reaches no page reports store.ErrNotFound so
// callers can skip it instead of failing their batch.
func (s *Storage) LocatePage(ctx context.Context, chunkUUID string) (store.PageNode, error) {
	result, err := s.run(ctx, `
		MATCH (chunk:Chunk {uuid: $chunk_uuid})
		MATCH (page:Page)-[:HAS_SECTION*0..]->(owner)-[:HAS_CHUNK]->(chunk)
		RETURN DISTINCT page.uuid AS uuid, page.title AS title
	`, map[string]any{
		"chunk_uuid": chunkUUID,
	})
	if err != nil {
		return store.PageNode{}, fmt.Errorf("failed to locate page for chunk %q: %w", chunkUUID, err)
	}
	if len(result.Records) == 0 {
		return store.PageNode{}, store.ErrNotFound
	}

	uuid, _ := result.Records[0].Get("uuid")
	title, _ := result.Records[0].Get("title")
	page := store.PageNode{}
	page.UUID, _ = uuid.(string)
	page.Title, _ = title.(string)
	if page.UUID == "" {
		return store.PageNode{}, store.ErrNotFound
	}
	return page, nil
}

// SectionsOf returns the node's child sections in document order by
// walking FIRST_SECTION then the NEXT_SECTION chain. HAS_SECTION alone
// would return the same set, but with no order guarantee.
func (s *Storage) SectionsOf(ctx context.Context, ref store.NodeRef) ([]store.SectionNode, error) {
	query := fmt.Sprintf(`
		MATCH (n:%s {uuid: $uuid})-[:FIRST_SECTION]->(first)
		OPTIONAL MATCH (first)-[:NEXT_SECTION*]->(s)
		WITH first, collect(s) AS rest
		WITH [first] + rest AS sections
		UNWIND sections AS section
		RETURN section.uuid AS uuid,
		       section.name AS name,
		       [l IN labels(section) WHERE l IN ['h2', 'h3', 'h4']][0] AS level
	`, ref.Kind)

	result, err := s.run(ctx, query, map[string]any{"uuid": ref.UUID})
	if err != nil {
		return nil, fmt.Errorf("failed to list sections of %q: %w", ref.UUID, err)
	}

	var sections []store.SectionNode
	for _, record := range result.Records {
		uuid, _ := record.Get("uuid")
		name, _ := record.Get("name")
		level, _ := record.Get("level")

		node := store.SectionNode{}
		node.UUID, _ = uuid.(string)
		node.Name, _ = name.(string)
		if l, ok := level.(string); ok {
			node.Level = wiki.HeadingLevel(l)
		}
		sections = append(sections, node)
	}
	return sections, nil
}

// ChunksOf returns the node's directly attached chunk uuids in document
// order by walking FIRST_CHUNK then the NEXT_CHUNK chain.
func (s *Storage) ChunksOf(ctx context.Context, ref store.NodeRef) ([]string, error) {
	query := fmt.Sprintf(`
		MATCH (n:%s {uuid: $uuid})-[:FIRST_CHUNK]->(first)
		OPTIONAL MATCH (first)-[:NEXT_CHUNK*]->(c)
		WITH first, collect(c) AS rest
		WITH [first] + rest AS chunks
		UNWIND chunks AS chunk
		RETURN chunk.uuid AS uuid
	`, ref.Kind)

	result, err := s.run(ctx, query, map[string]any{"uuid": ref.UUID})
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks of %q: %w", ref.UUID, err)
	}

	var chunks []string
	for _, record := range result.Records {
		uuid, _ := record.Get("uuid")
		if id, ok := uuid.(string); ok {
			chunks = append(chunks, id)
		}
	}
	return chunks, nil
}
