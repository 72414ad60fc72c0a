// Package retrieve turns questions into answers: it finds candidate
// chunks by vector similarity, widens them into whole page hierarchies,
// lets a model pick the relevant sections, and assembles the chosen
// subtrees into context text for answer generation.
package retrieve

import (
	"fmt"

	"github.com/wikigraph/backend/pkg/wiki"
)

// Metadata describes where a resolved subtree sits in its page: the
// page title plus one entry per traversed heading level, e.g.
// {"title": "Dinosaur", "h2": "Paleobiology", "h3": "Size"}.
type Metadata map[string]string

// SectionNotFoundError reports a path element that matched no section.
// Models hallucinate section names; callers treat this as a recoverable
// per-path failure, not a pipeline error.
type SectionNotFoundError struct {
	Name string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("section %q not found in the hierarchy", e.Name)
}

// Resolve walks a proposed path down the content tree and returns the
// subtree it names together with its metadata. The first path element is
// the page title and identifies the tree itself; the remaining elements
// name sections, matched by exact name level by level.
func Resolve(content *wiki.ContentNode, path []string) (*wiki.ContentNode, Metadata, error) {
	if len(path) == 0 {
		return nil, nil, fmt.Errorf("empty hierarchy path")
	}

	metadata := Metadata{"title": path[0]}
	node := content
	for _, name := range path[1:] {
		var next *wiki.ContentNode
		for _, section := range node.Sections {
			if section.Name == name {
				next = section
				break
			}
		}
		if next == nil {
			return nil, nil, &SectionNotFoundError{Name: name}
		}
		metadata[string(next.Type)] = next.Name
		node = next
	}
	return node, metadata, nil
}
