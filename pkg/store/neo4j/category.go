package neo4j

import (
	"context"
	"fmt"
)

// UpsertCategory merges the Category node by title, assigning the uuid
// only on create.
func (s *Storage) UpsertCategory(ctx context.Context, title string, proposedUUID string) (string, error) {
	result, err := s.run(ctx, `
		MERGE (c:Category {title: $title})
		ON CREATE SET c.uuid = $uuid
		RETURN c.uuid AS uuid
	`, map[string]any{
		"title": title,
		"uuid":  proposedUUID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upsert category %q: %w", title, err)
	}
	return singleString(result, "uuid")
}

// LinkCategoryPage ensures HAS_PAGE to an already-indexed page. Pages are
// never created here; a page that was filtered out or failed to index
// simply gets no edge.
func (s *Storage) LinkCategoryPage(ctx context.Context, categoryUUID string, pageTitle string) error {
	if _, err := s.run(ctx, `
		MATCH (c:Category {uuid: $category_uuid})
		MATCH (p:Page {title: $page_title})
		WHERE p.uuid IS NOT NULL
		MERGE (c)-[:HAS_PAGE]->(p)
	`, map[string]any{
		"category_uuid": categoryUUID,
		"page_title":    pageTitle,
	}); err != nil {
		return fmt.Errorf("failed to link category to page %q: %w", pageTitle, err)
	}
	return nil
}

// LinkSubcategory ensures HAS_SUBCATEGORY, creating the subcategory node
// if it does not exist yet, and returns its effective uuid.
func (s *Storage) LinkSubcategory(ctx context.Context, categoryUUID string, subcategoryTitle string, proposedUUID string) (string, error) {
	result, err := s.run(ctx, `
		MATCH (c:Category {uuid: $category_uuid})
		MERGE (sc:Category {title: $title})
		ON CREATE SET sc.uuid = $uuid
		MERGE (c)-[:HAS_SUBCATEGORY]->(sc)
		RETURN sc.uuid AS uuid
	`, map[string]any{
		"category_uuid": categoryUUID,
		"title":         subcategoryTitle,
		"uuid":          proposedUUID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to link subcategory %q: %w", subcategoryTitle, err)
	}
	return singleString(result, "uuid")
}
