package retrieve

import (
	"errors"
	"reflect"
	"testing"

	"github.com/wikigraph/backend/pkg/wiki"
)

func dinosaurContentTree() *wiki.ContentNode {
	return &wiki.ContentNode{
		Chunks: []string{"chunk-page"},
		Sections: []*wiki.ContentNode{
			{
				Name:   "Overview",
				Type:   wiki.LevelH2,
				Chunks: []string{"chunk-a"},
				Sections: []*wiki.ContentNode{
					{
						Name:   "Etymology",
						Type:   wiki.LevelH3,
						Chunks: []string{"chunk-b", "chunk-c"},
					},
				},
			},
			{
				Name:   "History",
				Type:   wiki.LevelH2,
				Chunks: []string{"chunk-d"},
			},
		},
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		path         []string
		wantName     string
		wantChunks   []string
		wantMetadata Metadata
	}{
		{
			name:         "page root",
			path:         []string{"Dinosaur"},
			wantName:     "",
			wantChunks:   []string{"chunk-page"},
			wantMetadata: Metadata{"title": "Dinosaur"},
		},
		{
			name:         "top level section",
			path:         []string{"Dinosaur", "Overview"},
			wantName:     "Overview",
			wantChunks:   []string{"chunk-a"},
			wantMetadata: Metadata{"title": "Dinosaur", "h2": "Overview"},
		},
		{
			name:         "nested section",
			path:         []string{"Dinosaur", "Overview", "Etymology"},
			wantName:     "Etymology",
			wantChunks:   []string{"chunk-b", "chunk-c"},
			wantMetadata: Metadata{"title": "Dinosaur", "h2": "Overview", "h3": "Etymology"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			node, metadata, err := Resolve(dinosaurContentTree(), tc.path)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if node.Name != tc.wantName {
				t.Errorf("Resolve() node name = %q, want %q", node.Name, tc.wantName)
			}
			if !reflect.DeepEqual(node.Chunks, tc.wantChunks) {
				t.Errorf("Resolve() node chunks = %v, want %v", node.Chunks, tc.wantChunks)
			}
			if !reflect.DeepEqual(metadata, tc.wantMetadata) {
				t.Errorf("Resolve() metadata = %v, want %v", metadata, tc.wantMetadata)
			}
		})
	}
}

func TestResolveUnknownSection(t *testing.T) {
	_, _, err := Resolve(dinosaurContentTree(), []string{"Dinosaur", "Overview", "Taxonomy"})

	var notFound *SectionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Resolve() error = %v, want SectionNotFoundError", err)
	}
	if notFound.Name != "Taxonomy" {
		t.Errorf("SectionNotFoundError name = %q, want %q", notFound.Name, "Taxonomy")
	}
}

func TestResolveSkipsDeeperMatches(t *testing.T) {
	// Etymology exists, but only under Overview; matching is level by level.
	_, _, err := Resolve(dinosaurContentTree(), []string{"Dinosaur", "Etymology"})

	var notFound *SectionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Resolve() error = %v, want SectionNotFoundError", err)
	}
}

func TestResolveEmptyPath(t *testing.T) {
	if _, _, err := Resolve(dinosaurContentTree(), nil); err == nil {
		t.Fatal("Resolve() expected error for empty path")
	}
}
