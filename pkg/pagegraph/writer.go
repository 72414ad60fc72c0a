// Package pagegraph persists page hierarchies into the property graph and
// reconstructs them. Writes are idempotent: the same page can be written
// any number of times, including after a crash mid-write, and converges to
// the same nodes and ordering chains.
package pagegraph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wikigraph/backend/pkg/logger"
	"github.com/wikigraph/backend/pkg/store"
	"github.com/wikigraph/backend/pkg/wiki"
)

// Writer persists page trees. It is stateless; one Writer can serve many
// concurrent pages, but the statements within a single page write are
// sequential because each level's uuids resolve the next level's parents.
type Writer struct {
	store store.GraphStore
}

func NewWriter(graphStore store.GraphStore) *Writer {
	return &Writer{store: graphStore}
}

// WritePage upserts the page node and recursively persists its sections
// and chunks, rebuilding every sibling-order chain from scratch. Any
// failure aborts the page; the caller retries the whole page, which is
// safe because every step is idempotent.
func (w *Writer) WritePage(ctx context.Context, page *wiki.Page) error {
	pageUUID, err := w.store.UpsertPage(ctx, page.Title, uuid.NewString())
	if err != nil {
		return fmt.Errorf("failed to write page %q: %w", page.Title, err)
	}

	parent := store.NodeRef{UUID: pageUUID, Kind: store.KindPage}
	if err := w.writeChildren(ctx, parent, page.Sections, page.Chunks); err != nil {
		return fmt.Errorf("failed to write page %q: %w", page.Title, err)
	}

	logger.Debug("[Graph] Page written", "title", page.Title, "uuid", pageUUID)
	return nil
}

// writeChildren persists one parent's ordered sections and chunks. All
// children are upserted before either chain is relinked: relinking needs
// every sibling's effective uuid, and the old chain must go away in full
// because the sibling set or order may have changed since the last write.
func (w *Writer) writeChildren(ctx context.Context, parent store.NodeRef, sections []*wiki.Section, chunks []wiki.ChunkRef) error {
	sectionUUIDs := make([]string, 0, len(sections))
	for _, section := range sections {
		sectionUUID, err := w.store.UpsertSection(ctx, parent, section.Name, section.Level, uuid.NewString())
		if err != nil {
			return fmt.Errorf("failed to upsert section %q: %w", section.Name, err)
		}
		sectionUUIDs = append(sectionUUIDs, sectionUUID)
	}
	if err := w.store.ReplaceSectionOrder(ctx, parent, dedupeOrder(sectionUUIDs)); err != nil {
		return fmt.Errorf("failed to relink sections under %q: %w", parent.UUID, err)
	}

	chunkUUIDs := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		// The ChunkRef id was minted at extraction time and is already
		// authoritative; there is no effective uuid to read back.
		if err := w.store.UpsertChunk(ctx, parent, chunk.ID); err != nil {
			return fmt.Errorf("failed to upsert chunk %q: %w", chunk.ID, err)
		}
		chunkUUIDs = append(chunkUUIDs, chunk.ID)
	}
	if err := w.store.ReplaceChunkOrder(ctx, parent, dedupeOrder(chunkUUIDs)); err != nil {
		return fmt.Errorf("failed to relink chunks under %q: %w", parent.UUID, err)
	}

	for i, section := range sections {
		child := store.NodeRef{UUID: sectionUUIDs[i], Kind: store.KindSection}
		if err := w.writeChildren(ctx, child, section.Sections, section.Chunks); err != nil {
			return err
		}
	}
	return nil
}

// dedupeOrder drops repeated uuids from an order so the chain lists each
// node exactly once. Sibling sections sharing a name collapse into one
// node under the (parent, name) key, and a chain that names a node twice
// would point the node at itself.
func dedupeOrder(ordered []string) []string {
	seen := make(map[string]bool, len(ordered))
	out := make([]string, 0, len(ordered))
	for _, id := range ordered {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
