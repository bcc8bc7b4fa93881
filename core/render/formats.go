package render

import (
	"fmt"

	"github.com/gaurav-prasanna/mdbatch/core"
)

// Output formats. Markdown is always written; the others are companions.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatPDF      = "pdf"
)

// KnownFormats lists every supported output format.
var KnownFormats = []string{FormatMarkdown, FormatJSON, FormatPDF}

// Encoders returns the companion encoders for formats, skipping markdown.
func Encoders(formats []string) ([]core.Encoder, error) {
	var encoders []core.Encoder
	for _, f := range formats {
		switch f {
		case FormatMarkdown:
		case FormatJSON:
			encoders = append(encoders, NewJSONEncoder())
		case FormatPDF:
			encoders = append(encoders, NewPDFEncoder())
		default:
			return nil, fmt.Errorf("unknown output format %q", f)
		}
	}
	return encoders, nil
}
