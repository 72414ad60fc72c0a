package wiki

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	reSpaces      = regexp.MustCompile(`\s+`)
	reDigitGroups = regexp.MustCompile(`(\d)\s+(\d)`)
)

// nested list container tags that get flattened to one block per item
var listTags = map[string]bool{
	"ul": true,
	"ol": true,
	"dl": true,
	"li": true,
	"dt": true,
	"dd": true,
}

// ExtractBlocks turns raw page HTML into an ordered block sequence.
//
// Top-level h2/h3/h4 elements become Heading blocks, paragraphs become
// Paragraph blocks, and list containers are flattened to one ListItem per
// non-empty item (image-only items produce no text and are dropped). Any
// other top-level element is kept as an Opaque block so that malformed or
// unexpected markup never fails a whole page.
func ExtractBlocks(markup string) []Block {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		// html.Parse only errors on reader failure; a string reader cannot.
		return nil
	}

	body := findElement(root, "body")
	if body == nil {
		body = root
	}

	var blocks []Block
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		switch child.Data {
		case "h2":
			blocks = append(blocks, Block{Kind: BlockHeading, Level: LevelH2, Text: cleanText(nodeText(child))})
		case "h3":
			blocks = append(blocks, Block{Kind: BlockHeading, Level: LevelH3, Text: cleanText(nodeText(child))})
		case "h4":
			blocks = append(blocks, Block{Kind: BlockHeading, Level: LevelH4, Text: cleanText(nodeText(child))})
		case "p":
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: cleanText(nodeText(child))})
		case "link":
			continue
		default:
			if listTags[child.Data] {
				blocks = append(blocks, extractListItems(child)...)
				continue
			}
			blocks = append(blocks, Block{Kind: BlockOpaque, Text: renderNode(child)})
		}
	}
	return blocks
}

// extractListItems flattens a list container into one ListItem block per
// non-empty item. Empty items (image-only entries and the like) are
// intentionally skipped, not reported.
func extractListItems(n *html.Node) []Block {
	var blocks []Block
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && child.Data == "li" {
				text := cleanText(nodeText(child))
				if text != "" {
					blocks = append(blocks, Block{Kind: BlockListItem, Text: "- " + text})
				}
				continue
			}
			walk(child)
		}
	}
	walk(n)
	return blocks
}

// cleanText normalizes extracted text: newlines and non-breaking spaces
// become regular spaces, whitespace runs collapse, and spaces between
// digit groups are removed (wiki markup splits large numbers).
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = reSpaces.ReplaceAllString(text, " ")
	text = reDigitGroups.ReplaceAllString(text, "$1$2")
	return strings.TrimSpace(text)
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteString(" ")
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func renderNode(n *html.Node) string {
	var b strings.Builder
	// Render failure would mean a broken writer, not broken markup.
	_ = html.Render(&b, n)
	return b.String()
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, name); found != nil {
			return found
		}
	}
	return nil
}
