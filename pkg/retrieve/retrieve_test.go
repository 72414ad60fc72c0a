package retrieve

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/wikigraph/backend/pkg/ai"
	"github.com/wikigraph/backend/pkg/content"
	contentmemory "github.com/wikigraph/backend/pkg/content/memory"
	"github.com/wikigraph/backend/pkg/pagegraph"
	storememory "github.com/wikigraph/backend/pkg/store/memory"
	"github.com/wikigraph/backend/pkg/wiki"
)

// fakeAIClient scripts the three model interactions of the pipeline.
type fakeAIClient struct {
	proposals    PathProposals
	answer       string
	answerPrompt string
}

func (f *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.answerPrompt = prompt
	return f.answer, nil
}

func (f *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name string, description string, prompt string, out any, opts ...ai.GenerateOption) error {
	encoded, err := json.Marshal(f.proposals)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, out)
}

func (f *fakeAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	res, err := f.GenerateEmbeddings(ctx, [][]byte{input})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (f *fakeAIClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, float32(len(inputs[i]))}
	}
	return out, nil
}

func (f *fakeAIClient) ResetMetrics()               {}
func (f *fakeAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func indexDinosaur(t *testing.T, graphStore *storememory.Store, contents content.Store) {
	t.Helper()
	ctx := context.Background()

	page := &wiki.Page{
		Title:  "Dinosaur",
		Chunks: []wiki.ChunkRef{{ID: "chunk-page"}},
		Sections: []*wiki.Section{
			{
				Name:   "Overview",
				Level:  wiki.LevelH2,
				Chunks: []wiki.ChunkRef{{ID: "chunk-a"}},
				Sections: []*wiki.Section{
					{
						Name:   "Etymology",
						Level:  wiki.LevelH3,
						Chunks: []wiki.ChunkRef{{ID: "chunk-b"}, {ID: "chunk-c"}},
					},
				},
			},
		},
	}
	if err := pagegraph.NewWriter(graphStore).WritePage(ctx, page); err != nil {
		t.Fatalf("WritePage() error: %v", err)
	}

	meta := wiki.ChunkMeta{Title: "Dinosaur"}
	err := contents.SaveChunks(ctx, []content.Chunk{
		{ID: "chunk-page", Text: "Dinosaurs are a diverse group of reptiles.", Meta: meta},
		{ID: "chunk-a", Text: "A", Meta: meta},
		{ID: "chunk-b", Text: "B", Meta: meta},
		{ID: "chunk-c", Text: "C", Meta: meta},
	})
	if err != nil {
		t.Fatalf("SaveChunks() error: %v", err)
	}
}

func TestAskEndToEnd(t *testing.T) {
	ctx := context.Background()
	client := &fakeAIClient{
		proposals: PathProposals{Paths: []PathProposal{
			{Path: []string{"Dinosaur", "Overview", "Etymology"}, Reasoning: "The word's meaning is explained there."},
		}},
		answer: "The word dinosaur means terrible lizard.",
	}
	graphStore := storememory.New()
	contents := contentmemory.New(client)
	indexDinosaur(t, graphStore, contents)

	answer, err := New(client, graphStore, contents).Ask(ctx, "What does the word dinosaur mean?")
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}

	if answer.Answer != client.answer {
		t.Errorf("Ask() answer = %q, want %q", answer.Answer, client.answer)
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("Ask() sources = %d, want 1", len(answer.Sources))
	}

	source := answer.Sources[0]
	wantMetadata := Metadata{"title": "Dinosaur", "h2": "Overview", "h3": "Etymology"}
	if len(source.Metadata) != len(wantMetadata) {
		t.Errorf("source metadata = %v, want %v", source.Metadata, wantMetadata)
	}
	for key, want := range wantMetadata {
		if source.Metadata[key] != want {
			t.Errorf("source metadata[%q] = %q, want %q", key, source.Metadata[key], want)
		}
	}
	if want := "Etymology (h3):\nB\n\nC"; source.Context != want {
		t.Errorf("source context = %q, want %q", source.Context, want)
	}

	if !strings.Contains(client.answerPrompt, "---- Document 1 ----") {
		t.Errorf("answer prompt missing document marker:\n%s", client.answerPrompt)
	}
	if !strings.Contains(client.answerPrompt, source.Context) {
		t.Errorf("answer prompt missing assembled context:\n%s", client.answerPrompt)
	}
}

func TestAskSkipsUnresolvablePaths(t *testing.T) {
	ctx := context.Background()
	client := &fakeAIClient{
		proposals: PathProposals{Paths: []PathProposal{
			{Path: []string{"Dinosaur", "Taxonomy"}, Reasoning: "hallucinated section"},
			{Path: []string{"Pterosaur", "Overview"}, Reasoning: "hallucinated page"},
			{Path: []string{"Dinosaur", "Overview"}, Reasoning: "valid fallback"},
		}},
		answer: "Dinosaurs are reptiles.",
	}
	graphStore := storememory.New()
	contents := contentmemory.New(client)
	indexDinosaur(t, graphStore, contents)

	answer, err := New(client, graphStore, contents).Ask(ctx, "Give an overview of dinosaurs.")
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("Ask() sources = %d, want only the resolvable path", len(answer.Sources))
	}
	if answer.Sources[0].Metadata["h2"] != "Overview" {
		t.Errorf("resolved source = %v, want Overview", answer.Sources[0].Metadata)
	}
}

func TestAskFailsWhenNoPathResolves(t *testing.T) {
	ctx := context.Background()
	client := &fakeAIClient{
		proposals: PathProposals{Paths: []PathProposal{
			{Path: []string{"Dinosaur", "Taxonomy"}},
		}},
		answer: "unused",
	}
	graphStore := storememory.New()
	contents := contentmemory.New(client)
	indexDinosaur(t, graphStore, contents)

	if _, err := New(client, graphStore, contents).Ask(ctx, "anything"); err == nil {
		t.Fatal("Ask() expected error when no path resolves")
	}
}

func TestAskSkipsChunksUnknownToGraph(t *testing.T) {
	ctx := context.Background()
	client := &fakeAIClient{
		proposals: PathProposals{Paths: []PathProposal{
			{Path: []string{"Dinosaur", "Overview"}},
		}},
		answer: "Dinosaurs are reptiles.",
	}
	graphStore := storememory.New()
	contents := contentmemory.New(client)
	indexDinosaur(t, graphStore, contents)

	// Content present in the store but never written to the graph.
	err := contents.SaveChunks(ctx, []content.Chunk{
		{ID: "chunk-orphan", Text: "Orphaned text.", Meta: wiki.ChunkMeta{Title: "Orphan"}},
	})
	if err != nil {
		t.Fatalf("SaveChunks() error: %v", err)
	}

	answer, err := New(client, graphStore, contents).Ask(ctx, "Give an overview of dinosaurs.")
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("Ask() sources = %d, want 1", len(answer.Sources))
	}
}
