// Package core defines the pipeline types and collaborator interfaces for mdbatch.
// Each stage of the per-URL conversion is a small, swappable interface.
package core

import (
	"context"
	"io"
	"time"
)

// Page is a fetched and parsed web page.
type Page struct {
	URL        string
	StatusCode int
	HTML       string
	Title      string
	// Images holds absolute image URLs in document order.
	Images []string
}

// PageMetadata holds metadata extracted from the page and URL.
type PageMetadata struct {
	URL       string `json:"url"`
	Domain    string `json:"domain"`
	Path      string `json:"path"`
	Title     string `json:"title"`
	FetchedAt string `json:"fetched_at"` // ISO8601
}

// Document is the Markdown produced for one task, ready to be persisted.
type Document struct {
	Name     string
	Markdown string
	Meta     PageMetadata
}

// Task is the unit of work converting one input line to one Markdown file.
type Task struct {
	ID    string
	Index int
	URL   string
}

// Asset describes one image reference found on a page.
type Asset struct {
	URL      string
	BaseName string
	// FileName is the disambiguated name under the images directory.
	FileName string
	Skipped  bool
	Reason   string
	Path     string
	Err      error
}

// TaskResult is the outcome of a single task.
type TaskResult struct {
	Task     Task
	Title    string
	Outputs  []string
	Assets   []Asset
	Duration time.Duration
	Err      error
}

// OK reports whether the task completed without error.
func (r TaskResult) OK() bool {
	return r.Err == nil
}

// Summary is the outcome of one batch run.
type Summary struct {
	OutputDir string
	Total     int
	Succeeded int
	Failed    int
	Results   []TaskResult
	StartedAt time.Time
	EndedAt   time.Time
}

// Fetcher retrieves pages and raw resources over the network.
type Fetcher interface {
	// Fetch downloads and parses the page at url.
	Fetch(ctx context.Context, url string) (*Page, error)
	// Open streams the resource at url. The caller closes the reader.
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// Normalizer rewrites raw HTML before it is rendered.
type Normalizer interface {
	Normalize(html string) string
}

// Renderer converts normalized HTML into Markdown.
type Renderer interface {
	Render(html string) (string, error)
}

// Encoder turns a finished document into an additional output format.
type Encoder interface {
	Encode(doc Document) ([]byte, error)
	// Extension returns the file extension for this encoder (e.g. ".pdf").
	Extension() string
}

// Notifier receives the one-time completion signal for a run.
type Notifier interface {
	Notify(ctx context.Context, summary Summary) error
}
