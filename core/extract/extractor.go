// Package extract discovers the images of a fetched page, filters out
// decorative icons, resolves filename collisions deterministically and
// downloads each kept image into the shared images directory.
package extract

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gaurav-prasanna/mdbatch/core"
	"github.com/rs/zerolog/log"
)

// Skip reasons reported on core.Asset.
const (
	ReasonNoName     = "no file name"
	ReasonAnnotation = "annotation icon"
	ReasonGIF        = "gif"
)

// skipWords mark note/tip icons that carry no document content.
var skipWords = []string{"note", "tip"}

// ImageStore persists downloaded images.
type ImageStore interface {
	EnsureImagesDir() error
	SaveImage(name string, r io.Reader) (string, error)
}

// skipReason returns why base should not be downloaded, or "" to keep it.
func skipReason(base string) string {
	if base == "" {
		return ReasonNoName
	}
	lower := strings.ToLower(base)
	for _, w := range skipWords {
		if strings.Contains(lower, w) {
			return ReasonAnnotation
		}
	}
	if strings.EqualFold(strings.TrimPrefix(path.Ext(base), "."), "gif") {
		return ReasonGIF
	}
	return ""
}

// Plan names every image in urls, in order. Skipped images do not consume
// a slot in counter.
func Plan(urls []string, counter *FilenameCounter) []core.Asset {
	assets := make([]core.Asset, 0, len(urls))
	for _, rawURL := range urls {
		asset := core.Asset{URL: rawURL}
		base, err := BaseName(rawURL)
		if err != nil {
			asset.Skipped = true
			asset.Reason = ReasonNoName
			asset.Err = err
			assets = append(assets, asset)
			continue
		}
		asset.BaseName = base

		if reason := skipReason(base); reason != "" {
			asset.Skipped = true
			asset.Reason = reason
			assets = append(assets, asset)
			continue
		}

		asset.FileName = counter.Next(base)
		assets = append(assets, asset)
	}
	return assets
}

// Extractor downloads the images of a page.
type Extractor struct {
	fetcher core.Fetcher
	store   ImageStore
}

// New creates an Extractor.
func New(fetcher core.Fetcher, store ImageStore) *Extractor {
	return &Extractor{fetcher: fetcher, store: store}
}

// Save plans and downloads page's images. A failed image is logged and
// recorded on its asset; the remaining images are still processed. The
// returned error is non-nil only when the images directory is unusable.
func (e *Extractor) Save(ctx context.Context, page *core.Page, counter *FilenameCounter) ([]core.Asset, error) {
	if err := e.store.EnsureImagesDir(); err != nil {
		return nil, err
	}

	assets := Plan(page.Images, counter)
	for i := range assets {
		asset := &assets[i]
		if asset.Skipped {
			log.Debug().Str("image", asset.BaseName).Str("reason", asset.Reason).Msg("skipping image")
			continue
		}

		dest, err := e.download(ctx, asset.URL, asset.FileName)
		if err != nil {
			asset.Err = err
			log.Warn().Err(err).Str("url", page.URL).Str("image", asset.URL).Msg("image download failed")
			continue
		}
		asset.Path = dest
		log.Debug().Str("path", dest).Msg("image saved")
	}
	return assets, nil
}

func (e *Extractor) download(ctx context.Context, rawURL, name string) (string, error) {
	body, err := e.fetcher.Open(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	dest, err := e.store.SaveImage(name, body)
	if err != nil {
		return "", fmt.Errorf("saving %s: %w", name, err)
	}
	return dest, nil
}
