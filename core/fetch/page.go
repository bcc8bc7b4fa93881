package fetch

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/mdbatch/core"
)

// ParsePage parses html fetched from pageURL into a core.Page.
// Image sources are resolved against the page URL (or its <base href>);
// images whose source is empty or does not resolve to an absolute URL are
// dropped.
func ParsePage(pageURL, html string) (*core.Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page URL: %w", err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	var images []string
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if abs := absURL(base, src); abs != "" {
			images = append(images, abs)
		}
	})

	return &core.Page{
		URL:    pageURL,
		HTML:   html,
		Title:  strings.TrimSpace(doc.Find("title").First().Text()),
		Images: images,
	}, nil
}

// absURL resolves src against base, returning "" when the result is not an
// absolute http(s) URL.
func absURL(base *url.URL, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Host == "" || (resolved.Scheme != "http" && resolved.Scheme != "https") {
		return ""
	}
	return resolved.String()
}
