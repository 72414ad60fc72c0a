package retrieve

import (
	"strings"

	"github.com/wikigraph/backend/pkg/wiki"
)

// ChunkIDs collects every chunk id in the subtree in depth-first
// document order: a node's own chunks first, then its sections.
func ChunkIDs(node *wiki.ContentNode) []string {
	var ids []string
	var walk func(n *wiki.ContentNode)
	walk = func(n *wiki.ContentNode) {
		ids = append(ids, n.Chunks...)
		for _, section := range n.Sections {
			walk(section)
		}
	}
	walk(node)
	return ids
}

// AssembleContext renders the subtree as indented plain text: a
// "Name (type):" header per section, chunk texts as paragraphs, and two
// spaces of extra indentation per nesting level. Chunk ids missing from
// contents render a placeholder instead of failing the whole subtree.
func AssembleContext(node *wiki.ContentNode, contents map[string]string) string {
	var render func(n *wiki.ContentNode, level int) string
	render = func(n *wiki.ContentNode, level int) string {
		indent := strings.Repeat("  ", level)
		var output []string

		if n.Name != "" && n.Type != "" {
			output = append(output, indent+n.Name+" ("+string(n.Type)+"):")
		}

		if len(n.Chunks) > 0 {
			paragraphs := make([]string, len(n.Chunks))
			for i, id := range n.Chunks {
				text, ok := contents[id]
				if !ok {
					text = "Missing content for chunk " + id
				}
				paragraphs[i] = indent + text
			}
			output = append(output, strings.Join(paragraphs, "\n\n"))
		}

		for _, section := range n.Sections {
			output = append(output, "\n\n"+render(section, level+1))
		}

		return strings.Join(output, "\n")
	}
	return render(node, 0)
}
