package wiki

// BlockKind identifies the type of a block produced by the extractor.
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockListItem  BlockKind = "list_item"
	BlockOpaque    BlockKind = "opaque"
)

// HeadingLevel is the depth of a section heading. Only h2 through h4 are
// tracked; deeper headings never occur in the source markup.
type HeadingLevel string

const (
	LevelH2 HeadingLevel = "h2"
	LevelH3 HeadingLevel = "h3"
	LevelH4 HeadingLevel = "h4"
)

// Block is one typed element of a page in document order. Blocks are
// transient: they exist only between extraction and hierarchy building.
//
// For Heading blocks, Level and Text are set. For Paragraph and ListItem
// blocks, Text carries the cleaned content. Opaque blocks carry the raw
// markup of an element the extractor does not understand.
type Block struct {
	Kind  BlockKind
	Level HeadingLevel
	Text  string
}

// ChunkRef is a reference to one retrievable unit of content. The ID is
// minted at extraction time and is the join key to the content store and
// to the Chunk node in the graph. It must never be regenerated when a page
// is re-indexed.
type ChunkRef struct {
	ID string
}

// Section is a named, heading-typed grouping of chunks and sub-sections.
// Child sections are always exactly one heading level deeper than their
// parent. Sibling order is document order and is significant.
type Section struct {
	Name     string
	Level    HeadingLevel
	Sections []*Section
	Chunks   []ChunkRef
}

// Page is the root of a page hierarchy. Chunks attached directly to the
// page precede any section in document order.
type Page struct {
	Title    string
	Sections []*Section
	Chunks   []ChunkRef
}

// ChunkMeta is the flat metadata stored with a chunk's text in the content
// store. H2..H4 name the deepest open sections at the time the chunk was
// extracted; empty values mean no section of that level was open.
type ChunkMeta struct {
	Title string `json:"title"`
	H2    string `json:"h2,omitempty"`
	H3    string `json:"h3,omitempty"`
	H4    string `json:"h4,omitempty"`
}

// ChunkDoc is the content-store record for one chunk: the stable id, the
// text, and the flat metadata. The graph never stores chunk text.
type ChunkDoc struct {
	ID   string
	Text string
	Meta ChunkMeta
}

// StructureNode is one node of the structure-only tree handed to the path
// proposer. It carries just enough to name a navigable section, nothing
// that could leak chunk content into a prompt.
type StructureNode struct {
	Name     string           `json:"name,omitempty"`
	Type     HeadingLevel     `json:"type,omitempty"`
	Sections []*StructureNode `json:"sections,omitempty"`
}

// ContentNode mirrors StructureNode shape for the same page but
// additionally carries the ordered chunk-id list at every node. It stays
// server-side; only the structure tree is serialized for the model.
type ContentNode struct {
	Name     string
	Type     HeadingLevel
	Chunks   []string
	Sections []*ContentNode
}
