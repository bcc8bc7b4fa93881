// Package rewrite points the image links of rendered Markdown at a fixed
// canonical host.
package rewrite

import (
	"net/url"
	"regexp"
	"strings"
)

// imageLink matches ![alt](path); group 1 is the path.
var imageLink = regexp.MustCompile(`!\[.*?\]\(([^)]*)\)`)

// Rewriter rewrites ![alt](path) into ![file](host/path).
type Rewriter struct {
	Host string
}

// New creates a Rewriter for the canonical host root (e.g. https://www.cisco.com).
func New(host string) *Rewriter {
	return &Rewriter{Host: strings.TrimRight(host, "/")}
}

// Rewrite replaces every image link left to right. The replacement text is
// inserted literally, so $ and \ in file names are preserved as-is. Text
// outside image links is returned unchanged.
func (r *Rewriter) Rewrite(markdown string) string {
	return imageLink.ReplaceAllStringFunc(markdown, func(match string) string {
		dest := imageLink.FindStringSubmatch(match)[1]
		// Drop an optional link title: ![alt](path "title").
		if i := strings.IndexAny(dest, " \t"); i >= 0 {
			dest = dest[:i]
		}
		p := sitePath(dest)
		return "![" + fileName(p) + "](" + r.join(p) + ")"
	})
}

func (r *Rewriter) join(p string) string {
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return r.Host + p
}

// sitePath strips scheme and host from absolute URLs so every image ends up
// on the canonical host.
func sitePath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	p := u.EscapedPath()
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

// fileName returns the last / or \ separated segment of p, ignoring any query.
func fileName(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
