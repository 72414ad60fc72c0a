package wiki

import "testing"

func heading(level HeadingLevel, text string) Block {
	return Block{Kind: BlockHeading, Level: level, Text: text}
}

func paragraph(text string) Block {
	return Block{Kind: BlockParagraph, Text: text}
}

func TestBuildNestedSections(t *testing.T) {
	blocks := []Block{
		heading(LevelH2, "Overview"),
		paragraph("A"),
		heading(LevelH3, "Etymology"),
		paragraph("B"),
		paragraph("C"),
		heading(LevelH2, "History"),
		paragraph("D"),
	}

	page, docs := Build("Dinosaur", blocks)

	if page.Title != "Dinosaur" {
		t.Errorf("title = %q, want %q", page.Title, "Dinosaur")
	}
	if len(page.Chunks) != 0 {
		t.Errorf("page-level chunks = %d, want 0", len(page.Chunks))
	}
	if len(page.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(page.Sections))
	}

	overview := page.Sections[0]
	if overview.Name != "Overview" || overview.Level != LevelH2 {
		t.Errorf("unexpected first section: %q (%s)", overview.Name, overview.Level)
	}
	if len(overview.Chunks) != 1 {
		t.Errorf("overview chunks = %d, want 1", len(overview.Chunks))
	}
	if len(overview.Sections) != 1 {
		t.Fatalf("overview subsections = %d, want 1", len(overview.Sections))
	}

	etymology := overview.Sections[0]
	if etymology.Name != "Etymology" || etymology.Level != LevelH3 {
		t.Errorf("unexpected subsection: %q (%s)", etymology.Name, etymology.Level)
	}
	if len(etymology.Chunks) != 2 {
		t.Errorf("etymology chunks = %d, want 2", len(etymology.Chunks))
	}

	history := page.Sections[1]
	if history.Name != "History" || len(history.Chunks) != 1 || len(history.Sections) != 0 {
		t.Errorf("unexpected second section: %+v", history)
	}

	if len(docs) != 4 {
		t.Fatalf("docs = %d, want 4", len(docs))
	}
	wantTexts := []string{"A", "B", "C", "D"}
	for i, doc := range docs {
		if doc.Text != wantTexts[i] {
			t.Errorf("doc[%d].Text = %q, want %q", i, doc.Text, wantTexts[i])
		}
		if doc.ID == "" {
			t.Errorf("doc[%d] has empty id", i)
		}
	}

	if docs[1].Meta.H2 != "Overview" || docs[1].Meta.H3 != "Etymology" {
		t.Errorf("doc[1] meta = %+v, want h2=Overview h3=Etymology", docs[1].Meta)
	}
	if docs[3].Meta.H2 != "History" || docs[3].Meta.H3 != "" {
		t.Errorf("doc[3] meta = %+v, want h2=History h3 empty", docs[3].Meta)
	}
}

func TestBuildPageLevelChunks(t *testing.T) {
	page, docs := Build("Plain", []Block{paragraph("Intro one"), paragraph("Intro two")})

	if len(page.Sections) != 0 {
		t.Errorf("sections = %d, want 0", len(page.Sections))
	}
	if len(page.Chunks) != 2 {
		t.Fatalf("page chunks = %d, want 2", len(page.Chunks))
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %d, want 2", len(docs))
	}
	for i := range docs {
		if docs[i].ID != page.Chunks[i].ID {
			t.Errorf("doc[%d].ID = %q, want %q", i, docs[i].ID, page.Chunks[i].ID)
		}
		if docs[i].Meta.Title != "Plain" || docs[i].Meta.H2 != "" {
			t.Errorf("doc[%d] meta = %+v", i, docs[i].Meta)
		}
	}
}

// A deep heading with no open parent section is silently dropped, and
// content following it is lost with it. This mirrors the behavior the
// existing graph corpus was built with; see DESIGN.md before changing it.
func TestBuildDanglingDeepHeading(t *testing.T) {
	page, docs := Build("Broken", []Block{
		heading(LevelH3, "X"),
		paragraph("p"),
	})

	if len(page.Sections) != 0 {
		t.Errorf("sections = %d, want 0", len(page.Sections))
	}
	if len(page.Chunks) != 0 {
		t.Errorf("page chunks = %d, want 0", len(page.Chunks))
	}
	if len(docs) != 0 {
		t.Errorf("docs = %d, want 0", len(docs))
	}
}

func TestBuildDanglingHeadingRecovery(t *testing.T) {
	page, docs := Build("Recovers", []Block{
		heading(LevelH3, "Orphan"),
		paragraph("lost"),
		heading(LevelH2, "Valid"),
		paragraph("kept"),
	})

	if len(page.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(page.Sections))
	}
	valid := page.Sections[0]
	if valid.Name != "Valid" || len(valid.Chunks) != 1 {
		t.Errorf("unexpected section: %+v", valid)
	}
	if len(docs) != 1 || docs[0].Text != "kept" {
		t.Errorf("docs = %+v, want single doc %q", docs, "kept")
	}
}

func TestBuildStrayH4FallsBackToOpenSection(t *testing.T) {
	// An h4 with no open h3 creates no section, but content after it still
	// attaches to the deepest section that is open. The phantom h4 name
	// leaks into the flat metadata; the graph never sees it.
	page, docs := Build("Stray", []Block{
		heading(LevelH2, "Top"),
		heading(LevelH4, "Phantom"),
		paragraph("text"),
	})

	top := page.Sections[0]
	if len(top.Sections) != 0 {
		t.Errorf("sections under Top = %d, want 0", len(top.Sections))
	}
	if len(top.Chunks) != 1 {
		t.Errorf("chunks under Top = %d, want 1", len(top.Chunks))
	}
	if docs[0].Meta.H4 != "Phantom" || docs[0].Meta.H3 != "" {
		t.Errorf("meta = %+v, want phantom h4 and empty h3", docs[0].Meta)
	}
}

func TestBuildFullDepth(t *testing.T) {
	page, docs := Build("Deep", []Block{
		heading(LevelH2, "Top"),
		heading(LevelH3, "Mid"),
		heading(LevelH4, "Leaf"),
		paragraph("deep text"),
	})

	top := page.Sections[0]
	mid := top.Sections[0]
	if len(mid.Sections) != 1 {
		t.Fatalf("h4 sections under h3 = %d, want 1", len(mid.Sections))
	}
	leaf := mid.Sections[0]
	if leaf.Name != "Leaf" || leaf.Level != LevelH4 || len(leaf.Chunks) != 1 {
		t.Errorf("unexpected h4 section: %+v", leaf)
	}
	if docs[0].Meta.H4 != "Leaf" {
		t.Errorf("meta.H4 = %q, want %q", docs[0].Meta.H4, "Leaf")
	}
}

func TestBuildResetsDeeperCursors(t *testing.T) {
	page, docs := Build("Resets", []Block{
		heading(LevelH2, "A"),
		heading(LevelH3, "A1"),
		heading(LevelH2, "B"),
		paragraph("under B"),
	})

	b := page.Sections[1]
	if len(b.Sections) != 0 || len(b.Chunks) != 1 {
		t.Errorf("unexpected section B: %+v", b)
	}
	if docs[0].Meta.H3 != "" {
		t.Errorf("meta.H3 = %q, want empty after new h2", docs[0].Meta.H3)
	}
}

func TestBuildStableIDsAreUnique(t *testing.T) {
	_, docs := Build("IDs", []Block{paragraph("a"), paragraph("b"), paragraph("c")})
	seen := map[string]bool{}
	for _, doc := range docs {
		if seen[doc.ID] {
			t.Fatalf("duplicate chunk id %q", doc.ID)
		}
		seen[doc.ID] = true
	}
}
