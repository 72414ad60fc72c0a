package pagegraph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wikigraph/backend/pkg/store"
)

// CategoryWriter connects Category nodes to pages and sub-categories.
// Unlike page writes there are no ordering chains here, so concurrent
// writers touching the same category are safe: every statement is an
// order-independent idempotent merge.
type CategoryWriter struct {
	store store.GraphStore
}

func NewCategoryWriter(graphStore store.GraphStore) *CategoryWriter {
	return &CategoryWriter{store: graphStore}
}

// LinkPage ensures the category exists and points at an already-indexed
// page. Pages that were never indexed get no edge and no error.
func (w *CategoryWriter) LinkPage(ctx context.Context, category string, pageTitle string) error {
	categoryUUID, err := w.store.UpsertCategory(ctx, category, uuid.NewString())
	if err != nil {
		return fmt.Errorf("failed to upsert category %q: %w", category, err)
	}
	if err := w.store.LinkCategoryPage(ctx, categoryUUID, pageTitle); err != nil {
		return err
	}
	return nil
}

// LinkSubcategory ensures both categories exist and connects them.
func (w *CategoryWriter) LinkSubcategory(ctx context.Context, category string, subcategory string) error {
	categoryUUID, err := w.store.UpsertCategory(ctx, category, uuid.NewString())
	if err != nil {
		return fmt.Errorf("failed to upsert category %q: %w", category, err)
	}
	if _, err := w.store.LinkSubcategory(ctx, categoryUUID, subcategory, uuid.NewString()); err != nil {
		return err
	}
	return nil
}
