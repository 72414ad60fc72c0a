package retrieve

import (
	"reflect"
	"testing"

	"github.com/wikigraph/backend/pkg/wiki"
)

func TestChunkIDsDepthFirst(t *testing.T) {
	got := ChunkIDs(dinosaurContentTree())
	want := []string{"chunk-page", "chunk-a", "chunk-b", "chunk-c", "chunk-d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ChunkIDs() = %v, want %v", got, want)
	}
}

func TestAssembleContextLeafSection(t *testing.T) {
	node, _, err := Resolve(dinosaurContentTree(), []string{"Dinosaur", "Overview", "Etymology"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	got := AssembleContext(node, map[string]string{
		"chunk-b": "B",
		"chunk-c": "C",
	})
	want := "Etymology (h3):\nB\n\nC"
	if got != want {
		t.Errorf("AssembleContext() = %q, want %q", got, want)
	}
}

func TestAssembleContextNestedIndentation(t *testing.T) {
	node, _, err := Resolve(dinosaurContentTree(), []string{"Dinosaur", "Overview"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	got := AssembleContext(node, map[string]string{
		"chunk-a": "A",
		"chunk-b": "B",
		"chunk-c": "C",
	})
	want := "Overview (h2):\nA\n\n\n  Etymology (h3):\n  B\n\n  C"
	if got != want {
		t.Errorf("AssembleContext() = %q, want %q", got, want)
	}
}

func TestAssembleContextAnonymousRoot(t *testing.T) {
	node := &wiki.ContentNode{Chunks: []string{"chunk-page"}}

	got := AssembleContext(node, map[string]string{"chunk-page": "Intro."})
	if got != "Intro." {
		t.Errorf("AssembleContext() = %q, want %q", got, "Intro.")
	}
}

func TestAssembleContextMissingContent(t *testing.T) {
	node := &wiki.ContentNode{
		Name:   "History",
		Type:   wiki.LevelH2,
		Chunks: []string{"chunk-d"},
	}

	got := AssembleContext(node, map[string]string{})
	want := "History (h2):\nMissing content for chunk chunk-d"
	if got != want {
		t.Errorf("AssembleContext() = %q, want %q", got, want)
	}
}
