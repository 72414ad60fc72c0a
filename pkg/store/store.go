package store

import (
	"context"
	"errors"

	"github.com/wikigraph/backend/pkg/wiki"
)

// ErrNotFound is returned by read operations when the addressed node does
// not exist or is not reachable. Callers treat it as a per-item condition,
// not a failure of the batch they are processing.
var ErrNotFound = errors.New("store: node not found")

// NodeKind is the graph label of a containment parent.
type NodeKind string

const (
	KindPage    NodeKind = "Page"
	KindSection NodeKind = "Section"
)

// NodeRef addresses a Page or Section node by its durable uuid.
type NodeRef struct {
	UUID string
	Kind NodeKind
}

// PageNode is the result of locating a chunk's owning page.
type PageNode struct {
	UUID  string
	Title string
}

// SectionNode is one ordered sibling returned by SectionsOf.
type SectionNode struct {
	UUID  string
	Name  string
	Level wiki.HeadingLevel
}

// GraphStore is the property-graph backend for the hierarchical content
// graph. Every method maps to a single atomic statement in the backend;
// there are no multi-statement transactions. Write correctness relies on
// each operation being idempotent so that a failed page write can be
// retried wholesale.
//
// Upserts return the uuid that is actually in effect after the statement,
// which is not necessarily the proposed one: a concurrent writer may have
// created the node first.
type GraphStore interface {
	// UpsertPage creates or finds the Page node with the given title.
	UpsertPage(ctx context.Context, title string, proposedUUID string) (string, error)

	// UpsertSection creates or finds the Section node keyed by
	// (parent uuid, name) under the given heading-level label, and ensures
	// the HAS_SECTION edge from the parent.
	UpsertSection(ctx context.Context, parent NodeRef, name string, level wiki.HeadingLevel, proposedUUID string) (string, error)

	// UpsertChunk creates the Chunk node with the given uuid if missing
	// and ensures the HAS_CHUNK edge from the parent. The uuid is
	// authoritative; no effective uuid needs returning.
	UpsertChunk(ctx context.Context, parent NodeRef, chunkUUID string) error

	// ReplaceSectionOrder rebuilds the FIRST_SECTION/NEXT_SECTION chain
	// under the parent: the old chain's edges are removed in full before
	// the given order is linked. An empty order only clears the old chain.
	ReplaceSectionOrder(ctx context.Context, parent NodeRef, ordered []string) error

	// ReplaceChunkOrder is ReplaceSectionOrder for FIRST_CHUNK/NEXT_CHUNK.
	ReplaceChunkOrder(ctx context.Context, parent NodeRef, ordered []string) error

	// UpsertCategory creates or finds the Category node with the title.
	UpsertCategory(ctx context.Context, title string, proposedUUID string) (string, error)

	// LinkCategoryPage ensures HAS_PAGE from the category to an existing
	// page. A missing page is not an error; the edge is simply not made.
	LinkCategoryPage(ctx context.Context, categoryUUID string, pageTitle string) error

	// LinkSubcategory ensures HAS_SUBCATEGORY between two categories,
	// creating the subcategory if needed, and returns its effective uuid.
	LinkSubcategory(ctx context.Context, categoryUUID string, subcategoryTitle string, proposedUUID string) (string, error)

	// LocatePage walks containment edges upward from a chunk to its owning
	// page. Returns ErrNotFound when no page is reachable.
	LocatePage(ctx context.Context, chunkUUID string) (PageNode, error)

	// SectionsOf returns the node's child sections in chain order, by
	// following FIRST_SECTION then NEXT_SECTION. No chain means no
	// sections; that is an empty result, not an error.
	SectionsOf(ctx context.Context, node NodeRef) ([]SectionNode, error)

	// ChunksOf returns the node's directly attached chunk uuids in chain
	// order, by following FIRST_CHUNK then NEXT_CHUNK.
	ChunksOf(ctx context.Context, node NodeRef) ([]string, error)
}
