// Package memory implements store.GraphStore as an in-process property
// graph. It backs local development and the package tests; production
// deployments use the neo4j backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wikigraph/backend/pkg/store"
	"github.com/wikigraph/backend/pkg/wiki"
)

type node struct {
	uuid       string
	kind       string // "Page", "Section", "Chunk", "Category"
	name       string // page/category title or section name
	level      wiki.HeadingLevel
	parentUUID string // sections only
}

// Store is an in-memory property graph. All operations are safe for
// concurrent use; each method holds the lock for its whole statement,
// which mirrors the per-statement atomicity the graph backend provides.
type Store struct {
	mu sync.Mutex

	nodes             map[string]*node
	pagesByTitle      map[string]string
	categoriesByTitle map[string]string
	sectionsByKey     map[string]string // parentUUID + "\x00" + name

	hasSection  map[string]map[string]bool
	hasChunk    map[string]map[string]bool
	chunkOwners map[string]map[string]bool // chunk uuid -> parent uuids

	firstSection map[string]string
	nextSection  map[string]string
	firstChunk   map[string]string
	nextChunk    map[string]string

	hasPage        map[string]map[string]bool
	hasSubcategory map[string]map[string]bool
}

func New() *Store {
	return &Store{
		nodes:             make(map[string]*node),
		pagesByTitle:      make(map[string]string),
		categoriesByTitle: make(map[string]string),
		sectionsByKey:     make(map[string]string),
		hasSection:        make(map[string]map[string]bool),
		hasChunk:          make(map[string]map[string]bool),
		chunkOwners:       make(map[string]map[string]bool),
		firstSection:      make(map[string]string),
		nextSection:       make(map[string]string),
		firstChunk:        make(map[string]string),
		nextChunk:         make(map[string]string),
		hasPage:           make(map[string]map[string]bool),
		hasSubcategory:    make(map[string]map[string]bool),
	}
}

func addEdge(edges map[string]map[string]bool, from, to string) {
	if edges[from] == nil {
		edges[from] = make(map[string]bool)
	}
	edges[from][to] = true
}

func (s *Store) UpsertPage(ctx context.Context, title string, proposedUUID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.pagesByTitle[title]; ok {
		return existing, nil
	}
	s.pagesByTitle[title] = proposedUUID
	s.nodes[proposedUUID] = &node{uuid: proposedUUID, kind: "Page", name: title}
	return proposedUUID, nil
}

func (s *Store) UpsertSection(ctx context.Context, parent store.NodeRef, name string, level wiki.HeadingLevel, proposedUUID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[parent.UUID]; !ok {
		return "", store.ErrNotFound
	}

	key := parent.UUID + "\x00" + name
	uuid, ok := s.sectionsByKey[key]
	if !ok {
		uuid = proposedUUID
		s.sectionsByKey[key] = uuid
		s.nodes[uuid] = &node{uuid: uuid, kind: "Section", name: name, level: level, parentUUID: parent.UUID}
	}
	addEdge(s.hasSection, parent.UUID, uuid)
	return uuid, nil
}

func (s *Store) UpsertChunk(ctx context.Context, parent store.NodeRef, chunkUUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[parent.UUID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := s.nodes[chunkUUID]; !ok {
		s.nodes[chunkUUID] = &node{uuid: chunkUUID, kind: "Chunk"}
	}
	addEdge(s.hasChunk, parent.UUID, chunkUUID)
	addEdge(s.chunkOwners, chunkUUID, parent.UUID)
	return nil
}

// clearChain removes the head edge and every successor edge reachable from
// the old head. Deleting the full old chain before relinking is what keeps
// reorderings from leaving stale successor edges behind.
func clearChain(first map[string]string, next map[string]string, parentUUID string) {
	head, ok := first[parentUUID]
	delete(first, parentUUID)
	for ok {
		var succ string
		succ, ok = next[head]
		delete(next, head)
		head = succ
	}
}

func linkChain(first map[string]string, next map[string]string, parentUUID string, ordered []string) {
	if len(ordered) == 0 {
		return
	}
	first[parentUUID] = ordered[0]
	for i := 0; i < len(ordered)-1; i++ {
		next[ordered[i]] = ordered[i+1]
	}
}

func (s *Store) ReplaceSectionOrder(ctx context.Context, parent store.NodeRef, ordered []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clearChain(s.firstSection, s.nextSection, parent.UUID)
	linkChain(s.firstSection, s.nextSection, parent.UUID, ordered)
	return nil
}

func (s *Store) ReplaceChunkOrder(ctx context.Context, parent store.NodeRef, ordered []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clearChain(s.firstChunk, s.nextChunk, parent.UUID)
	linkChain(s.firstChunk, s.nextChunk, parent.UUID, ordered)
	return nil
}

func (s *Store) UpsertCategory(ctx context.Context, title string, proposedUUID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.categoriesByTitle[title]; ok {
		return existing, nil
	}
	s.categoriesByTitle[title] = proposedUUID
	s.nodes[proposedUUID] = &node{uuid: proposedUUID, kind: "Category", name: title}
	return proposedUUID, nil
}

func (s *Store) LinkCategoryPage(ctx context.Context, categoryUUID string, pageTitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pageUUID, ok := s.pagesByTitle[pageTitle]
	if !ok {
		// Matching the graph semantics: linking to a page that was never
		// indexed is a no-op, not an error.
		return nil
	}
	addEdge(s.hasPage, categoryUUID, pageUUID)
	return nil
}

func (s *Store) LinkSubcategory(ctx context.Context, categoryUUID string, subcategoryTitle string, proposedUUID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uuid, ok := s.categoriesByTitle[subcategoryTitle]
	if !ok {
		uuid = proposedUUID
		s.categoriesByTitle[subcategoryTitle] = uuid
		s.nodes[uuid] = &node{uuid: uuid, kind: "Category", name: subcategoryTitle}
	}
	addEdge(s.hasSubcategory, categoryUUID, uuid)
	return uuid, nil
}

func (s *Store) LocatePage(ctx context.Context, chunkUUID string) (store.PageNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for owner := range s.chunkOwners[chunkUUID] {
		current := owner
		for {
			n, ok := s.nodes[current]
			if !ok {
				break
			}
			if n.kind == "Page" {
				return store.PageNode{UUID: n.uuid, Title: n.name}, nil
			}
			if n.parentUUID == "" {
				break
			}
			current = n.parentUUID
		}
	}
	return store.PageNode{}, store.ErrNotFound
}

func (s *Store) SectionsOf(ctx context.Context, ref store.NodeRef) ([]store.SectionNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The seen guard bounds the walk on a malformed chain, matching the
	// relationship uniqueness the graph backend's traversals have.
	seen := make(map[string]bool)
	var out []store.SectionNode
	for uuid, ok := s.firstSection[ref.UUID]; ok && !seen[uuid]; uuid, ok = s.nextSection[uuid] {
		seen[uuid] = true
		n, exists := s.nodes[uuid]
		if !exists {
			return nil, store.ErrNotFound
		}
		out = append(out, store.SectionNode{UUID: n.uuid, Name: n.name, Level: n.level})
	}
	return out, nil
}

func (s *Store) ChunksOf(ctx context.Context, ref store.NodeRef) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for uuid, ok := s.firstChunk[ref.UUID]; ok && !seen[uuid]; uuid, ok = s.nextChunk[uuid] {
		seen[uuid] = true
		out = append(out, uuid)
	}
	return out, nil
}

// PagesInCategory reports the titles of pages linked under a category.
// Used by administrative browsing, not by retrieval.
func (s *Store) PagesInCategory(ctx context.Context, categoryTitle string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uuid, ok := s.categoriesByTitle[categoryTitle]
	if !ok {
		return nil, store.ErrNotFound
	}
	var titles []string
	for pageUUID := range s.hasPage[uuid] {
		if n, exists := s.nodes[pageUUID]; exists {
			titles = append(titles, n.name)
		}
	}
	sort.Strings(titles)
	return titles, nil
}
