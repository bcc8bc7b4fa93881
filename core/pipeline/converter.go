// Package pipeline runs URL-to-Markdown conversions: a Converter carries one
// task through every stage and a Pool runs many tasks with bounded
// concurrency behind a completion barrier.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gaurav-prasanna/mdbatch/core"
	"github.com/gaurav-prasanna/mdbatch/core/extract"
	"github.com/gaurav-prasanna/mdbatch/core/input"
	"github.com/gaurav-prasanna/mdbatch/core/output"
	"github.com/gaurav-prasanna/mdbatch/core/rewrite"
	"github.com/rs/zerolog/log"
)

// Stage names used to prefix task errors.
const (
	StageValidate = "validate"
	StageFetch    = "fetch"
	StageImages   = "images"
	StageRender   = "render"
	StageWrite    = "write"
	StageEncode   = "encode"
)

const markdownExt = ".md"

// Stages holds the collaborators a Converter drives.
type Stages struct {
	Fetcher    core.Fetcher
	Normalizer core.Normalizer
	Renderer   core.Renderer
	Rewriter   *rewrite.Rewriter
	Writer     *output.Writer
	// Encoders produce companion files next to the Markdown.
	Encoders []core.Encoder
}

// Converter turns one page into a Markdown file plus its images. A
// Converter belongs to a single run: by default every task it converts
// shares one image-name counter, so two pages never claim the same image
// file.
type Converter struct {
	stages    Stages
	images    *extract.Extractor
	counter   *extract.FilenameCounter
	perTask   bool
	timestamp func() time.Time
}

// NewConverter creates a Converter. With perTaskImageNames set, each task
// counts image names on its own and same-named images of different pages
// overwrite each other.
func NewConverter(stages Stages, perTaskImageNames bool) *Converter {
	return &Converter{
		stages:    stages,
		images:    extract.New(stages.Fetcher, stages.Writer),
		counter:   extract.NewFilenameCounter(),
		perTask:   perTaskImageNames,
		timestamp: time.Now,
	}
}

// Convert runs task through validate, fetch, images, normalize, render,
// rewrite and write, in that order. The first failing stage ends the task;
// its error is returned on the result prefixed with the stage name. A
// failed image download is recorded on its asset and does not fail the task.
func (c *Converter) Convert(ctx context.Context, task core.Task) core.TaskResult {
	res := core.TaskResult{Task: task}
	logger := log.With().Str("task_id", task.ID).Str("url", task.URL).Logger()

	fail := func(stage string, err error) core.TaskResult {
		res.Err = fmt.Errorf("%s: %w", stage, err)
		logger.Error().Err(err).Str("stage", stage).Msg("conversion failed")
		return res
	}

	pageURL, err := input.ValidateURL(task.URL)
	if err != nil {
		return fail(StageValidate, err)
	}

	page, err := c.stages.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return fail(StageFetch, err)
	}
	res.Title = page.Title
	logger.Debug().Int("status", page.StatusCode).Int("images", len(page.Images)).Msg("page fetched")

	counter := c.counter
	if c.perTask {
		counter = extract.NewFilenameCounter()
	}
	res.Assets, err = c.images.Save(ctx, page, counter)
	if err != nil {
		return fail(StageImages, err)
	}

	html := c.stages.Normalizer.Normalize(page.HTML)

	markdown, err := c.stages.Renderer.Render(html)
	if err != nil {
		return fail(StageRender, err)
	}
	markdown = c.stages.Rewriter.Rewrite(markdown)

	doc := core.Document{
		Name:     output.Filename(page.Title),
		Markdown: markdown,
		Meta:     c.metadata(pageURL, page.Title),
	}

	path, err := c.stages.Writer.WriteDocument(doc.Name, markdownExt, []byte(doc.Markdown))
	if err != nil {
		return fail(StageWrite, err)
	}
	res.Outputs = append(res.Outputs, path)

	for _, enc := range c.stages.Encoders {
		data, err := enc.Encode(doc)
		if err != nil {
			return fail(StageEncode, fmt.Errorf("%s: %w", enc.Extension(), err))
		}
		path, err := c.stages.Writer.WriteDocument(doc.Name, enc.Extension(), data)
		if err != nil {
			return fail(StageWrite, err)
		}
		res.Outputs = append(res.Outputs, path)
	}

	logger.Info().Str("path", res.Outputs[0]).Int("images", countSaved(res.Assets)).Msg("page converted")
	return res
}

func (c *Converter) metadata(pageURL, title string) core.PageMetadata {
	meta := core.PageMetadata{
		URL:       pageURL,
		Title:     title,
		FetchedAt: c.timestamp().UTC().Format(time.RFC3339),
	}
	if parsed, err := url.Parse(pageURL); err == nil {
		meta.Domain = parsed.Host
		meta.Path = parsed.Path
	}
	return meta
}

func countSaved(assets []core.Asset) int {
	n := 0
	for _, a := range assets {
		if a.Path != "" {
			n++
		}
	}
	return n
}
