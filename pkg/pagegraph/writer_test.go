package pagegraph

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/wikigraph/backend/pkg/store"
	"github.com/wikigraph/backend/pkg/store/memory"
	"github.com/wikigraph/backend/pkg/wiki"
)

func chunkRefs(n int) []wiki.ChunkRef {
	refs := make([]wiki.ChunkRef, n)
	for i := range refs {
		refs[i] = wiki.ChunkRef{ID: uuid.NewString()}
	}
	return refs
}

func samplePage() *wiki.Page {
	return &wiki.Page{
		Title:  "Dinosaur",
		Chunks: chunkRefs(1),
		Sections: []*wiki.Section{
			{
				Name:   "Overview",
				Level:  wiki.LevelH2,
				Chunks: chunkRefs(1),
				Sections: []*wiki.Section{
					{Name: "Etymology", Level: wiki.LevelH3, Chunks: chunkRefs(2)},
				},
			},
			{Name: "History", Level: wiki.LevelH2, Chunks: chunkRefs(1)},
		},
	}
}

// contentShape flattens a content tree into a comparable form.
type contentShape struct {
	Name     string
	Type     wiki.HeadingLevel
	Chunks   []string
	Sections []contentShape
}

func shapeOf(node *wiki.ContentNode) contentShape {
	shape := contentShape{Name: node.Name, Type: node.Type, Chunks: node.Chunks}
	for _, section := range node.Sections {
		shape.Sections = append(shape.Sections, shapeOf(section))
	}
	return shape
}

func shapeOfPage(page *wiki.Page) contentShape {
	var toShape func(name string, level wiki.HeadingLevel, sections []*wiki.Section, chunks []wiki.ChunkRef) contentShape
	toShape = func(name string, level wiki.HeadingLevel, sections []*wiki.Section, chunks []wiki.ChunkRef) contentShape {
		shape := contentShape{Name: name, Type: level}
		for _, chunk := range chunks {
			shape.Chunks = append(shape.Chunks, chunk.ID)
		}
		for _, section := range sections {
			shape.Sections = append(shape.Sections, toShape(section.Name, section.Level, section.Sections, section.Chunks))
		}
		return shape
	}
	return toShape("", "", page.Sections, page.Chunks)
}

func writeAndReconstruct(t *testing.T, graphStore store.GraphStore, page *wiki.Page) (*wiki.StructureNode, *wiki.ContentNode) {
	t.Helper()
	ctx := context.Background()

	if err := NewWriter(graphStore).WritePage(ctx, page); err != nil {
		t.Fatalf("WritePage() error: %v", err)
	}

	reader := NewReader(graphStore)
	located, err := reader.LocatePage(ctx, firstChunkID(page))
	if err != nil {
		t.Fatalf("LocatePage() error: %v", err)
	}
	if located.Title != page.Title {
		t.Fatalf("located title = %q, want %q", located.Title, page.Title)
	}

	structure, content, err := reader.ReconstructPage(ctx, located)
	if err != nil {
		t.Fatalf("ReconstructPage() error: %v", err)
	}
	return structure, content
}

func firstChunkID(page *wiki.Page) string {
	if len(page.Chunks) > 0 {
		return page.Chunks[0].ID
	}
	var find func(sections []*wiki.Section) string
	find = func(sections []*wiki.Section) string {
		for _, section := range sections {
			if len(section.Chunks) > 0 {
				return section.Chunks[0].ID
			}
			if id := find(section.Sections); id != "" {
				return id
			}
		}
		return ""
	}
	return find(page.Sections)
}

func TestWriteOrderRoundTrip(t *testing.T) {
	page := samplePage()
	_, content := writeAndReconstruct(t, memory.New(), page)

	if got, want := shapeOf(content), shapeOfPage(page); !reflect.DeepEqual(got, want) {
		t.Errorf("reconstructed tree = %#v, want %#v", got, want)
	}
}

func TestWriteIdempotent(t *testing.T) {
	ctx := context.Background()
	graphStore := memory.New()
	writer := NewWriter(graphStore)
	page := samplePage()

	if err := writer.WritePage(ctx, page); err != nil {
		t.Fatalf("first WritePage() error: %v", err)
	}

	located, err := NewReader(graphStore).LocatePage(ctx, firstChunkID(page))
	if err != nil {
		t.Fatalf("LocatePage() error: %v", err)
	}
	firstUUIDs := collectSectionUUIDs(t, graphStore, located.UUID)

	if err := writer.WritePage(ctx, page); err != nil {
		t.Fatalf("second WritePage() error: %v", err)
	}

	relocated, err := NewReader(graphStore).LocatePage(ctx, firstChunkID(page))
	if err != nil {
		t.Fatalf("LocatePage() after rewrite error: %v", err)
	}
	if relocated.UUID != located.UUID {
		t.Errorf("page uuid changed across writes: %q -> %q", located.UUID, relocated.UUID)
	}

	secondUUIDs := collectSectionUUIDs(t, graphStore, relocated.UUID)
	if !reflect.DeepEqual(firstUUIDs, secondUUIDs) {
		t.Errorf("section uuids changed across writes: %v -> %v", firstUUIDs, secondUUIDs)
	}

	// Rewriting must not duplicate ordering chains.
	_, content, err := NewReader(graphStore).ReconstructPage(ctx, relocated)
	if err != nil {
		t.Fatalf("ReconstructPage() error: %v", err)
	}
	if got, want := shapeOf(content), shapeOfPage(page); !reflect.DeepEqual(got, want) {
		t.Errorf("tree after rewrite = %#v, want %#v", got, want)
	}
}

// collectSectionUUIDs walks the ordered chains and returns every section
// uuid in depth-first document order.
func collectSectionUUIDs(t *testing.T, graphStore store.GraphStore, pageUUID string) []string {
	t.Helper()
	ctx := context.Background()

	var uuids []string
	var walk func(ref store.NodeRef)
	walk = func(ref store.NodeRef) {
		sections, err := graphStore.SectionsOf(ctx, ref)
		if err != nil {
			t.Fatalf("SectionsOf() error: %v", err)
		}
		for _, section := range sections {
			uuids = append(uuids, section.UUID)
			walk(store.NodeRef{UUID: section.UUID, Kind: store.KindSection})
		}
	}
	walk(store.NodeRef{UUID: pageUUID, Kind: store.KindPage})
	return uuids
}

func TestRewriteReflectsNewOrder(t *testing.T) {
	ctx := context.Background()
	graphStore := memory.New()
	writer := NewWriter(graphStore)

	page := samplePage()
	if err := writer.WritePage(ctx, page); err != nil {
		t.Fatalf("first WritePage() error: %v", err)
	}

	// Simulate an edited source: same sections, swapped order.
	page.Sections[0], page.Sections[1] = page.Sections[1], page.Sections[0]
	if err := writer.WritePage(ctx, page); err != nil {
		t.Fatalf("second WritePage() error: %v", err)
	}

	located, err := NewReader(graphStore).LocatePage(ctx, firstChunkID(page))
	if err != nil {
		t.Fatalf("LocatePage() error: %v", err)
	}
	_, content, err := NewReader(graphStore).ReconstructPage(ctx, located)
	if err != nil {
		t.Fatalf("ReconstructPage() error: %v", err)
	}

	if len(content.Sections) != 2 {
		t.Fatalf("sections after reorder = %d, want 2 (stale chain edges?)", len(content.Sections))
	}
	if content.Sections[0].Name != "History" || content.Sections[1].Name != "Overview" {
		t.Errorf("section order = [%q, %q], want [History, Overview]",
			content.Sections[0].Name, content.Sections[1].Name)
	}
}

func TestRewriteWithRemovedSection(t *testing.T) {
	ctx := context.Background()
	graphStore := memory.New()
	writer := NewWriter(graphStore)

	page := samplePage()
	if err := writer.WritePage(ctx, page); err != nil {
		t.Fatalf("first WritePage() error: %v", err)
	}

	page.Sections = page.Sections[:1] // drop History
	if err := writer.WritePage(ctx, page); err != nil {
		t.Fatalf("second WritePage() error: %v", err)
	}

	located, err := NewReader(graphStore).LocatePage(ctx, firstChunkID(page))
	if err != nil {
		t.Fatalf("LocatePage() error: %v", err)
	}
	_, content, err := NewReader(graphStore).ReconstructPage(ctx, located)
	if err != nil {
		t.Fatalf("ReconstructPage() error: %v", err)
	}
	if len(content.Sections) != 1 || content.Sections[0].Name != "Overview" {
		t.Errorf("sections after shrink = %#v, want only Overview reachable", content.Sections)
	}
}

func TestWriteRepeatedSiblingHeadings(t *testing.T) {
	ctx := context.Background()
	graphStore := memory.New()

	// Wiki pages can repeat a heading at the same level; both sections
	// land on one node under the (parent, name) key, and the order chain
	// must still list that node exactly once.
	page := &wiki.Page{
		Title: "Dinosaur",
		Sections: []*wiki.Section{
			{Name: "History", Level: wiki.LevelH2, Chunks: []wiki.ChunkRef{{ID: "chunk-a"}}},
			{Name: "History", Level: wiki.LevelH2, Chunks: []wiki.ChunkRef{{ID: "chunk-b"}}},
		},
	}
	if err := NewWriter(graphStore).WritePage(ctx, page); err != nil {
		t.Fatalf("WritePage() error: %v", err)
	}

	located, err := NewReader(graphStore).LocatePage(ctx, "chunk-b")
	if err != nil {
		t.Fatalf("LocatePage() error: %v", err)
	}
	sections, err := graphStore.SectionsOf(ctx, store.NodeRef{UUID: located.UUID, Kind: store.KindPage})
	if err != nil {
		t.Fatalf("SectionsOf() error: %v", err)
	}
	if len(sections) != 1 || sections[0].Name != "History" {
		t.Fatalf("SectionsOf() = %#v, want exactly one History node", sections)
	}

	// The merged node carries the last sibling's chunk chain, the same
	// way rewriting a page replaces the previous chain.
	chunks, err := graphStore.ChunksOf(ctx, store.NodeRef{UUID: sections[0].UUID, Kind: store.KindSection})
	if err != nil {
		t.Fatalf("ChunksOf() error: %v", err)
	}
	if !reflect.DeepEqual(chunks, []string{"chunk-b"}) {
		t.Errorf("ChunksOf() = %v, want [chunk-b]", chunks)
	}

	if _, _, err := NewReader(graphStore).ReconstructPage(ctx, located); err != nil {
		t.Fatalf("ReconstructPage() error: %v", err)
	}
}

func TestLocatePageUnknownChunk(t *testing.T) {
	reader := NewReader(memory.New())
	_, err := reader.LocatePage(context.Background(), uuid.NewString())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("LocatePage() error = %v, want store.ErrNotFound", err)
	}
}

func TestCategoryWriter(t *testing.T) {
	ctx := context.Background()
	graphStore := memory.New()

	page := samplePage()
	if err := NewWriter(graphStore).WritePage(ctx, page); err != nil {
		t.Fatalf("WritePage() error: %v", err)
	}

	categories := NewCategoryWriter(graphStore)
	if err := categories.LinkPage(ctx, "Reptiles", "Dinosaur"); err != nil {
		t.Fatalf("LinkPage() error: %v", err)
	}
	// Linking a page that was never indexed is a silent no-op.
	if err := categories.LinkPage(ctx, "Reptiles", "NoSuchPage"); err != nil {
		t.Fatalf("LinkPage() for missing page error: %v", err)
	}
	if err := categories.LinkSubcategory(ctx, "Reptiles", "Archosaurs"); err != nil {
		t.Fatalf("LinkSubcategory() error: %v", err)
	}
	// Re-linking must be idempotent.
	if err := categories.LinkPage(ctx, "Reptiles", "Dinosaur"); err != nil {
		t.Fatalf("repeated LinkPage() error: %v", err)
	}

	titles, err := graphStore.PagesInCategory(ctx, "Reptiles")
	if err != nil {
		t.Fatalf("PagesInCategory() error: %v", err)
	}
	if !reflect.DeepEqual(titles, []string{"Dinosaur"}) {
		t.Errorf("PagesInCategory() = %v, want [Dinosaur]", titles)
	}
}
