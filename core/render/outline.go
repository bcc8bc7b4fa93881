package render

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// BlockKind identifies the type of a top-level Markdown block.
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockListItem  BlockKind = "list_item"
	BlockQuote     BlockKind = "quote"
	BlockCode      BlockKind = "code"
)

// Block is a flattened Markdown block with its plain text.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Level int       `json:"level,omitempty"`
	Text  string    `json:"text"`
}

// Heading is a single heading found in the document.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is a hyperlink or image reference.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Outline is the structure of a Markdown document.
type Outline struct {
	Headings []Heading `json:"headings"`
	Links    []Link    `json:"links"`
	Images   []Link    `json:"images"`
	Blocks   []Block   `json:"-"`
}

// ParseOutline walks the goldmark AST of markdown and collects its blocks,
// headings, links and images in document order.
func ParseOutline(markdown string) Outline {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	out := Outline{
		Headings: []Heading{},
		Links:    []Link{},
		Images:   []Link{},
	}
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			txt := inlineText(n, source)
			out.Headings = append(out.Headings, Heading{Level: n.Level, Text: txt})
			out.Blocks = append(out.Blocks, Block{Kind: BlockHeading, Level: n.Level, Text: txt})
		case *ast.Paragraph, *ast.TextBlock:
			out.Blocks = append(out.Blocks, Block{Kind: blockKindOf(n), Text: inlineText(n, source)})
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			out.Blocks = append(out.Blocks, Block{Kind: BlockCode, Text: codeText(n, source)})
			return ast.WalkSkipChildren, nil
		case *ast.Image:
			out.Images = append(out.Images, Link{Text: inlineText(n, source), Href: string(n.Destination)})
		case *ast.Link:
			out.Links = append(out.Links, Link{Text: inlineText(n, source), Href: string(n.Destination)})
		}
		return ast.WalkContinue, nil
	})
	return out
}

// blockKindOf classifies a paragraph by its nearest container.
func blockKindOf(n ast.Node) BlockKind {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.(type) {
		case *ast.ListItem:
			return BlockListItem
		case *ast.Blockquote:
			return BlockQuote
		}
	}
	return BlockParagraph
}

// inlineText concatenates the text segments below n.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := child.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(source))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func codeText(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimRight(b.String(), "\n")
}
