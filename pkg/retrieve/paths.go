package retrieve

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wikigraph/backend/pkg/ai"
	"github.com/wikigraph/backend/pkg/wiki"
)

// PathProposal is one hierarchy path chosen by the model, from page
// title down to the section expected to contain the answer.
type PathProposal struct {
	Path      []string `json:"path"      jsonschema_description:"Section names from the page title down to the chosen section, in order"`
	Reasoning string   `json:"reasoning" jsonschema_description:"Brief reasoning for why this section likely contains the answer"`
}

// PathProposals is the structured response format for path selection.
type PathProposals struct {
	Paths []PathProposal `json:"paths" jsonschema_description:"The selected hierarchy paths, most relevant first"`
}

// pageStructure is the JSON shape the model sees per candidate page:
// the title plus the nested section menu, without any chunk ids.
type pageStructure struct {
	Title    string                `json:"title"`
	Sections []*wiki.StructureNode `json:"sections,omitempty"`
}

const pathSelectionPrompt = `The given context represents the structure of one or more wiki pages in JSON form. The keys at the top level are the page titles, and the values are the hierarchical section structure of each page.

**Objective**: Given the question and the provided page structures, select the most relevant path or paths that likely contain the answer.

THE PATH OR PATHS MUST STRICTLY DERIVE FROM THE STRUCTURE PROVIDED IN THE CONTEXT. DO NOT MAKE UP NEW PATHS.

### Key Guidelines:
- Trace the hierarchy to the section that best answers the question. Each path starts with the page title.
- You may not need to go to the lowest level. For broad questions, selecting a higher-level section is appropriate.
- If the answer could be present across multiple sections, select the most directly related one, or provide multiple paths if necessary.
- Include a brief reasoning for each choice.

### Context:
%s

### Question:
%s`

// SelectPaths asks the model which sections of the candidate pages
// likely answer the question. The structures map is keyed by page title.
func SelectPaths(
	ctx context.Context,
	client ai.GraphAIClient,
	question string,
	structures map[string]*wiki.StructureNode,
	opts ...ai.GenerateOption,
) ([]PathProposal, error) {
	menu := make(map[string]pageStructure, len(structures))
	for title, root := range structures {
		menu[title] = pageStructure{Title: title, Sections: root.Sections}
	}
	encoded, err := json.Marshal(menu)
	if err != nil {
		return nil, fmt.Errorf("failed to encode page structures: %w", err)
	}

	var proposals PathProposals
	if err := client.GenerateCompletionWithFormat(
		ctx,
		"hierarchy_paths",
		"Hierarchy paths into the page structures that likely contain the answer",
		fmt.Sprintf(pathSelectionPrompt, string(encoded), question),
		&proposals,
		opts...,
	); err != nil {
		return nil, fmt.Errorf("failed to select hierarchy paths: %w", err)
	}
	return proposals.Paths, nil
}
