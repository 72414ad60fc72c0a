package pagegraph

import (
	"context"
	"fmt"

	"github.com/wikigraph/backend/pkg/store"
	"github.com/wikigraph/backend/pkg/wiki"
)

// Reader reconstructs ordered page trees from the graph.
type Reader struct {
	store store.GraphStore
}

func NewReader(graphStore store.GraphStore) *Reader {
	return &Reader{store: graphStore}
}

// LocatePage resolves the page owning a chunk. store.ErrNotFound means the
// chunk belongs to no known page; callers skip such chunks.
func (r *Reader) LocatePage(ctx context.Context, chunkUUID string) (store.PageNode, error) {
	return r.store.LocatePage(ctx, chunkUUID)
}

// ReconstructPage rebuilds both trees for a located page: the structure
// tree carries only names and heading types and is safe to serialize into
// a prompt as a menu of navigable sections; the content tree has the same
// shape plus the ordered chunk-id list at every node and stays server-side.
// The root nodes are anonymous; the page title travels with the PageNode.
func (r *Reader) ReconstructPage(ctx context.Context, page store.PageNode) (*wiki.StructureNode, *wiki.ContentNode, error) {
	return r.reconstruct(ctx, store.NodeRef{UUID: page.UUID, Kind: store.KindPage})
}

func (r *Reader) reconstruct(ctx context.Context, ref store.NodeRef) (*wiki.StructureNode, *wiki.ContentNode, error) {
	structure := &wiki.StructureNode{}
	content := &wiki.ContentNode{}

	sections, err := r.store.SectionsOf(ctx, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sections of %q: %w", ref.UUID, err)
	}
	for _, section := range sections {
		childRef := store.NodeRef{UUID: section.UUID, Kind: store.KindSection}
		childStructure, childContent, err := r.reconstruct(ctx, childRef)
		if err != nil {
			return nil, nil, err
		}
		childStructure.Name = section.Name
		childStructure.Type = section.Level
		childContent.Name = section.Name
		childContent.Type = section.Level

		structure.Sections = append(structure.Sections, childStructure)
		content.Sections = append(content.Sections, childContent)
	}

	chunks, err := r.store.ChunksOf(ctx, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read chunks of %q: %w", ref.UUID, err)
	}
	content.Chunks = chunks

	return structure, content, nil
}
