package wiki

import "github.com/google/uuid"

// Build consumes an ordered block sequence and produces the page hierarchy
// plus the flat chunk documents destined for the content store.
//
// The builder keeps one cursor per heading level. A heading opens a new
// section under the appropriate parent and becomes the insertion target
// for subsequent content blocks; a shallower heading resets every deeper
// cursor. Content blocks mint a ChunkRef and attach to the deepest open
// section, or to the page while no section has been opened.
//
// Known quirk, kept on purpose: an h3/h4 that arrives while no shallower
// section is open creates nothing, and content that follows it before the
// next valid heading is lost as well. Do not "fix" this without checking
// the indexed corpus; existing graphs were built with these semantics.
func Build(title string, blocks []Block) (*Page, []ChunkDoc) {
	page := &Page{Title: title}
	var docs []ChunkDoc

	var curH2, curH3, curH4 *Section
	var nameH2, nameH3, nameH4 string

	for _, block := range blocks {
		if block.Text == "" {
			continue
		}

		if block.Kind == BlockHeading {
			switch block.Level {
			case LevelH2:
				nameH2, nameH3, nameH4 = block.Text, "", ""
				curH2 = &Section{Name: block.Text, Level: LevelH2}
				curH3, curH4 = nil, nil
				page.Sections = append(page.Sections, curH2)
			case LevelH3:
				nameH3, nameH4 = block.Text, ""
				curH4 = nil
				if curH2 != nil {
					curH3 = &Section{Name: block.Text, Level: LevelH3}
					curH2.Sections = append(curH2.Sections, curH3)
				} else {
					curH3 = nil
				}
			case LevelH4:
				nameH4 = block.Text
				if curH3 != nil {
					curH4 = &Section{Name: block.Text, Level: LevelH4}
					curH3.Sections = append(curH3.Sections, curH4)
				} else {
					curH4 = nil
				}
			}
			continue
		}

		ref := ChunkRef{ID: uuid.NewString()}
		switch {
		case curH4 != nil:
			curH4.Chunks = append(curH4.Chunks, ref)
		case curH3 != nil:
			curH3.Chunks = append(curH3.Chunks, ref)
		case curH2 != nil:
			curH2.Chunks = append(curH2.Chunks, ref)
		case nameH3 == "" && nameH4 == "":
			page.Chunks = append(page.Chunks, ref)
		default:
			// A dangling deep heading is "open" but has no section node.
			// The block has no parent to attach to and is lost with it.
			continue
		}

		docs = append(docs, ChunkDoc{
			ID:   ref.ID,
			Text: block.Text,
			Meta: ChunkMeta{Title: title, H2: nameH2, H3: nameH3, H4: nameH4},
		})
	}

	return page, docs
}
