package retrieve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/wikigraph/backend/pkg/ai"
	"github.com/wikigraph/backend/pkg/content"
	"github.com/wikigraph/backend/pkg/logger"
	"github.com/wikigraph/backend/pkg/pagegraph"
	"github.com/wikigraph/backend/pkg/store"
	"github.com/wikigraph/backend/pkg/wiki"
)

const (
	defaultSearchLimit = 10
	tokenEncoding      = "o200k_base"
)

// Retriever answers questions in two phases: similarity search finds
// entry-point chunks, then the surrounding page hierarchies are offered
// to the model, which picks the sections whose full text becomes the
// answer context.
type Retriever struct {
	aiClient ai.GraphAIClient
	reader   *pagegraph.Reader
	contents content.Store

	searchLimit int
	tokenLimit  int // 0 disables the context budget
}

type Option func(*Retriever)

// WithSearchLimit sets how many chunks the similarity search returns.
func WithSearchLimit(limit int) Option {
	return func(r *Retriever) {
		r.searchLimit = limit
	}
}

// WithTokenLimit caps the combined context size in tokens. Contexts are
// admitted in path-proposal order until the budget is exhausted.
func WithTokenLimit(limit int) Option {
	return func(r *Retriever) {
		r.tokenLimit = limit
	}
}

func New(aiClient ai.GraphAIClient, graphStore store.GraphStore, contents content.Store, opts ...Option) *Retriever {
	r := &Retriever{
		aiClient:    aiClient,
		reader:      pagegraph.NewReader(graphStore),
		contents:    contents,
		searchLimit: defaultSearchLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Source is one assembled context that contributed to an answer.
type Source struct {
	Metadata Metadata `json:"metadata"`
	Context  string   `json:"context"`
}

// Answer is the generated answer plus the sources it was built from.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

const answerPrompt = `Answer the question only using the following context. Do not use any external information. If the answer is not present in the context, respond with "I don't know." If the answer is only partially covered, provide the partial answer and mention explicitly that it may be incomplete.

### Context:
%s

### Question:
%s`

// Ask runs the full retrieval pipeline for a question. Unresolvable
// model-proposed paths and chunks unknown to the graph are skipped, not
// fatal; Ask fails only when no context can be assembled at all.
func (r *Retriever) Ask(ctx context.Context, question string) (*Answer, error) {
	embedding, err := r.aiClient.GenerateEmbedding(ctx, []byte(question))
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	candidates, err := r.contents.SearchSimilar(ctx, embedding, r.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no indexed content matched the question")
	}

	structures, contentTrees, err := r.buildHierarchies(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if len(structures) == 0 {
		return nil, fmt.Errorf("no candidate chunk belongs to an indexed page")
	}

	proposals, err := SelectPaths(ctx, r.aiClient, question, structures)
	if err != nil {
		return nil, err
	}

	sources, err := r.assembleSources(ctx, proposals, contentTrees)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no hierarchy path could be resolved")
	}

	var sb strings.Builder
	for i, source := range sources {
		fmt.Fprintf(&sb, "---- Document %d ----\n%s\n\n", i+1, source.Context)
	}
	answer, err := r.aiClient.GenerateCompletion(ctx, fmt.Sprintf(answerPrompt, sb.String(), question))
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &Answer{Answer: answer, Sources: sources}, nil
}

// buildHierarchies reconstructs the page trees behind the candidate
// chunks, one per distinct page. Chunks the graph does not know are
// skipped: the content store and the graph are updated independently,
// so transient disagreement is expected.
func (r *Retriever) buildHierarchies(
	ctx context.Context,
	candidates []content.Chunk,
) (map[string]*wiki.StructureNode, map[string]*wiki.ContentNode, error) {
	structures := make(map[string]*wiki.StructureNode)
	contentTrees := make(map[string]*wiki.ContentNode)

	for _, candidate := range candidates {
		page, err := r.reader.LocatePage(ctx, candidate.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				logger.Warn("[Retrieve] Chunk not in graph, skipping", "chunk", candidate.ID)
				continue
			}
			return nil, nil, fmt.Errorf("failed to locate page for chunk %q: %w", candidate.ID, err)
		}
		if _, seen := structures[page.Title]; seen {
			continue
		}

		structure, contentTree, err := r.reader.ReconstructPage(ctx, page)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to reconstruct page %q: %w", page.Title, err)
		}
		structures[page.Title] = structure
		contentTrees[page.Title] = contentTree
	}
	return structures, contentTrees, nil
}

// assembleSources resolves each proposed path and renders its context
// text, dropping paths that point at unknown pages or sections.
func (r *Retriever) assembleSources(
	ctx context.Context,
	proposals []PathProposal,
	contentTrees map[string]*wiki.ContentNode,
) ([]Source, error) {
	var encoder *tiktoken.Tiktoken
	if r.tokenLimit > 0 {
		var err error
		encoder, err = tiktoken.GetEncoding(tokenEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load token encoding: %w", err)
		}
	}

	var sources []Source
	budget := r.tokenLimit
	for _, proposal := range proposals {
		if len(proposal.Path) == 0 {
			continue
		}
		tree, ok := contentTrees[proposal.Path[0]]
		if !ok {
			logger.Warn("[Retrieve] Proposed path names unknown page, skipping", "path", proposal.Path)
			continue
		}

		subtree, metadata, err := Resolve(tree, proposal.Path)
		if err != nil {
			var notFound *SectionNotFoundError
			if errors.As(err, &notFound) {
				logger.Warn("[Retrieve] Proposed path unresolvable, skipping",
					"path", proposal.Path, "section", notFound.Name)
				continue
			}
			return nil, err
		}

		texts, err := r.contents.GetByIDs(ctx, ChunkIDs(subtree))
		if err != nil {
			return nil, fmt.Errorf("failed to load chunk texts: %w", err)
		}
		text := AssembleContext(subtree, texts)

		if encoder != nil {
			cost := len(encoder.Encode(text, nil, nil))
			if cost > budget {
				logger.Debug("[Retrieve] Context budget exhausted",
					"path", proposal.Path, "cost", cost, "remaining", budget)
				break
			}
			budget -= cost
		}
		sources = append(sources, Source{Metadata: metadata, Context: text})
	}
	return sources, nil
}
