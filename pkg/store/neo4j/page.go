package neo4j

import (
	"context"
	"fmt"

	"github.com/wikigraph/backend/pkg/store"
	"github.com/wikigraph/backend/pkg/wiki"
)

// UpsertPage merges the Page node by title. The uuid is only assigned on
// create, so the returned value is whatever uuid is in effect afterwards,
// regardless of which writer got there first.
func (s *Storage) UpsertPage(ctx context.Context, title string, proposedUUID string) (string, error) {
	result, err := s.run(ctx, `
		MERGE (p:Page {title: $title})
		ON CREATE SET p.uuid = $uuid
		RETURN p.uuid AS uuid
	`, map[string]any{
		"title": title,
		"uuid":  proposedUUID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upsert page %q: %w", title, err)
	}
	return singleString(result, "uuid")
}

// UpsertSection merges the Section node keyed by (parent_uuid, name) under
// its heading-level label and ensures the containment edge.
func (s *Storage) UpsertSection(ctx context.Context, parent store.NodeRef, name string, level wiki.HeadingLevel, proposedUUID string) (string, error) {
	// Labels cannot be parameterized; parent kind and level come from
	// closed enums, never from input.
	query := fmt.Sprintf(`
		MATCH (parent:%s {uuid: $parent_uuid})
		MERGE (s:Section:%s {name: $name, parent_uuid: $parent_uuid})
		ON CREATE SET s.uuid = $uuid
		MERGE (parent)-[:HAS_SECTION]->(s)
		RETURN s.uuid AS uuid
	`, parent.Kind, level)

	result, err := s.run(ctx, query, map[string]any{
		"parent_uuid": parent.UUID,
		"name":        name,
		"uuid":        proposedUUID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upsert section %q: %w", name, err)
	}
	return singleString(result, "uuid")
}

// UpsertChunk merges the Chunk node by its externally minted uuid and
// ensures the containment edge. The uuid is authoritative, so nothing
// needs returning.
func (s *Storage) UpsertChunk(ctx context.Context, parent store.NodeRef, chunkUUID string) error {
	query := fmt.Sprintf(`
		MATCH (parent:%s {uuid: $parent_uuid})
		MERGE (c:Chunk {uuid: $uuid})
		MERGE (parent)-[:HAS_CHUNK]->(c)
	`, parent.Kind)

	if _, err := s.run(ctx, query, map[string]any{
		"parent_uuid": parent.UUID,
		"uuid":        chunkUUID,
	}); err != nil {
		return fmt.Errorf("failed to upsert chunk %q: %w", chunkUUID, err)
	}
	return nil
}

// ReplaceSectionOrder drops the parent's whole FIRST_SECTION/NEXT_SECTION
// chain and links the new order. Clearing runs as its own statement so
// stale successor edges can never survive a reorder, even off nodes that
// dropped out of the sibling set entirely.
func (s *Storage) ReplaceSectionOrder(ctx context.Context, parent store.NodeRef, ordered []string) error {
	return s.replaceOrder(ctx, parent, ordered, "FIRST_SECTION", "NEXT_SECTION", "Section")
}

// ReplaceChunkOrder is ReplaceSectionOrder for the chunk chain.
func (s *Storage) ReplaceChunkOrder(ctx context.Context, parent store.NodeRef, ordered []string) error {
	return s.replaceOrder(ctx, parent, ordered, "FIRST_CHUNK", "NEXT_CHUNK", "Chunk")
}

func (s *Storage) replaceOrder(ctx context.Context, parent store.NodeRef, ordered []string, firstRel, nextRel, label string) error {
	clear := fmt.Sprintf(`
		MATCH (parent:%s {uuid: $parent_uuid})
		OPTIONAL MATCH (parent)-[f:%s]->(head)
		OPTIONAL MATCH (head)-[:%s*0..]->(m)-[n:%s]->()
		DELETE f, n
	`, parent.Kind, firstRel, nextRel, nextRel)

	if _, err := s.run(ctx, clear, map[string]any{"parent_uuid": parent.UUID}); err != nil {
		return fmt.Errorf("failed to clear %s chain: %w", firstRel, err)
	}

	if len(ordered) == 0 {
		return nil
	}

	// The driver only maps []any to Cypher lists.
	pairs := make([]any, 0, len(ordered)-1)
	for i := 0; i < len(ordered)-1; i++ {
		pairs = append(pairs, []any{ordered[i], ordered[i+1]})
	}

	link := fmt.Sprintf(`
		MATCH (parent:%s {uuid: $parent_uuid})
		MATCH (first:%s {uuid: $first})
		MERGE (parent)-[:%s]->(first)
		WITH parent
		UNWIND $pairs AS pair
		MATCH (a:%s {uuid: pair[0]})
		MATCH (b:%s {uuid: pair[1]})
		MERGE (a)-[:%s]->(b)
	`, parent.Kind, label, firstRel, label, label, nextRel)

	if _, err := s.run(ctx, link, map[string]any{
		"parent_uuid": parent.UUID,
		"first":       ordered[0],
		"pairs":       pairs,
	}); err != nil {
		return fmt.Errorf("failed to link %s chain: %w", firstRel, err)
	}
	return nil
}
