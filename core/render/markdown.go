// Package render converts normalized HTML into Markdown and encodes finished
// documents into companion formats (JSON, PDF).
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// quoteMarker matches a blockquote marker at the start of a line that the
// converter wrote back as an HTML entity.
var quoteMarker = regexp.MustCompile(`(?m)^([ \t]*)&gt;`)

// MarkdownRenderer converts HTML to Markdown using html-to-markdown.
// When sanitizing, the HTML first passes through a bluemonday UGC policy so
// scripts, event handlers and javascript: URLs never reach the output.
// Safe for concurrent use.
type MarkdownRenderer struct {
	policy *bluemonday.Policy
}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer(sanitize bool) *MarkdownRenderer {
	r := &MarkdownRenderer{}
	if sanitize {
		r.policy = bluemonday.UGCPolicy()
	}
	return r
}

// Render converts an HTML document or fragment into Markdown.
// Escaping is disabled so the heading, list and quote prefixes the
// normalizer wrote into the text survive as Markdown syntax.
func (r *MarkdownRenderer) Render(html string) (string, error) {
	if r.policy != nil {
		html = r.policy.Sanitize(html)
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
		converter.WithEscapeMode(converter.EscapeModeDisabled),
	)
	markdown, err := conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	markdown = quoteMarker.ReplaceAllString(markdown, "${1}>")
	return strings.TrimSpace(markdown) + "\n", nil
}
