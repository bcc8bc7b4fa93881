package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gaurav-prasanna/mdbatch/core"
	"github.com/gaurav-prasanna/mdbatch/core/fetch"
	"github.com/gaurav-prasanna/mdbatch/core/input"
	"github.com/gaurav-prasanna/mdbatch/core/normalize"
	"github.com/gaurav-prasanna/mdbatch/core/output"
	"github.com/gaurav-prasanna/mdbatch/core/render"
	"github.com/gaurav-prasanna/mdbatch/core/rewrite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guidePage = `<html><head><title>Guide: Setup</title></head><body>
<h1>Setup Guide</h1>
<p>Install the agent first.</p>
<img src="/img/one/a.png" alt="first">
<img src="/img/two/a.png" alt="second">
<img src="/img/note.png" alt="">
<img src="/img/spin.gif" alt="">
<img src="/img/missing.png" alt="">
</body></html>`

const manualPage = `<html><head><title>Manual</title></head><body>
<p class="pToC_Subhead1">Overview</p>
<p class="pBullet">item one</p>
<p class="MsoBodyTextIndent">quoted</p>
<p class="pToC_Subhead2">Second</p>
</body></html>`

const otherPage = `<html><head><title>Other</title></head><body>
<p>Shared artwork.</p>
<img src="/img/one/a.png" alt="logo">
</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/guide", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(guidePage))
	})
	mux.HandleFunc("/manual", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(manualPage))
	})
	mux.HandleFunc("/other", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(otherPage))
	})
	mux.HandleFunc("/img/one/a.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("one"))
	})
	mux.HandleFunc("/img/two/a.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("two"))
	})
	mux.HandleFunc("/img/note.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("note"))
	})
	mux.HandleFunc("/img/spin.gif", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("gif"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestConverter(t *testing.T, dir string, perTask bool, encoders ...core.Encoder) *Converter {
	t.Helper()
	writer, err := output.New(dir, "")
	require.NoError(t, err)
	return NewConverter(Stages{
		Fetcher:    fetch.NewWithOptions(fetch.Options{MaxRetries: -1}),
		Normalizer: normalize.New(),
		Renderer:   render.NewMarkdownRenderer(true),
		Rewriter:   rewrite.New("https://canon.example/"),
		Writer:     writer,
		Encoders:   encoders,
	}, perTask)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestConvert(t *testing.T) {
	srv := newSite(t)
	dir := t.TempDir()
	conv := newTestConverter(t, dir, false)

	res := conv.Convert(context.Background(), core.Task{ID: "t1", URL: srv.URL + "/guide"})
	require.NoError(t, res.Err)
	assert.Equal(t, "Guide: Setup", res.Title)
	require.Equal(t, []string{filepath.Join(dir, "GuideSetup.md")}, res.Outputs)

	md := readFile(t, res.Outputs[0])
	assert.Contains(t, md, "# Setup Guide")
	assert.Contains(t, md, "Install the agent first.")
	assert.Contains(t, md, "(https://canon.example/img/one/a.png)")
	assert.Contains(t, md, "(https://canon.example/img/two/a.png)")
	assert.NotContains(t, md, srv.URL)

	images := filepath.Join(dir, output.DefaultImagesDir)
	assert.Equal(t, "one", readFile(t, filepath.Join(images, "a.png")))
	assert.Equal(t, "two", readFile(t, filepath.Join(images, "a(1).png")))
	assert.NoFileExists(t, filepath.Join(images, "note.png"))
	assert.NoFileExists(t, filepath.Join(images, "spin.gif"))
	assert.NoFileExists(t, filepath.Join(images, "missing.png"))

	require.Len(t, res.Assets, 5)
	assert.True(t, res.Assets[2].Skipped)
	assert.True(t, res.Assets[3].Skipped)
	missing := res.Assets[4]
	assert.False(t, missing.Skipped)
	assert.True(t, errors.Is(missing.Err, fetch.ErrUnexpectedStatus))
}

func TestConvertAppliesNormalizerMarkers(t *testing.T) {
	srv := newSite(t)
	dir := t.TempDir()
	conv := newTestConverter(t, dir, false)

	res := conv.Convert(context.Background(), core.Task{ID: "t1", URL: srv.URL + "/manual"})
	require.NoError(t, res.Err)

	md := readFile(t, filepath.Join(dir, "Manual.md"))
	assert.Regexp(t, `(?m)^# +Overview`, md)
	assert.Regexp(t, `(?m)^> +quoted`, md)
	assert.Regexp(t, `(?m)^## +Second`, md)
	assert.Contains(t, md, "- item one")
	assert.NotContains(t, md, `\#`)
	assert.NotContains(t, md, "&gt;")
}

func TestConvertWritesCompanionFormats(t *testing.T) {
	srv := newSite(t)
	dir := t.TempDir()
	conv := newTestConverter(t, dir, false, render.NewJSONEncoder())

	res := conv.Convert(context.Background(), core.Task{ID: "t1", URL: srv.URL + "/other"})
	require.NoError(t, res.Err)
	require.Len(t, res.Outputs, 2)
	assert.Equal(t, filepath.Join(dir, "Other.json"), res.Outputs[1])

	js := readFile(t, res.Outputs[1])
	assert.Contains(t, js, `"title": "Other"`)
	assert.Contains(t, js, srv.URL+"/other")
}

func TestConvertSharesImageNamesAcrossTasks(t *testing.T) {
	srv := newSite(t)
	dir := t.TempDir()
	conv := newTestConverter(t, dir, false)

	for i := 0; i < 2; i++ {
		res := conv.Convert(context.Background(), core.Task{URL: srv.URL + "/other"})
		require.NoError(t, res.Err)
	}

	images := filepath.Join(dir, output.DefaultImagesDir)
	assert.FileExists(t, filepath.Join(images, "a.png"))
	assert.FileExists(t, filepath.Join(images, "a(1).png"))
}

func TestConvertPerTaskImageNames(t *testing.T) {
	srv := newSite(t)
	dir := t.TempDir()
	conv := newTestConverter(t, dir, true)

	for i := 0; i < 2; i++ {
		res := conv.Convert(context.Background(), core.Task{URL: srv.URL + "/other"})
		require.NoError(t, res.Err)
		assert.Equal(t, "a.png", res.Assets[0].FileName)
	}

	entries, err := os.ReadDir(filepath.Join(dir, output.DefaultImagesDir))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConvertStageErrors(t *testing.T) {
	srv := newSite(t)
	conv := newTestConverter(t, t.TempDir(), false)

	res := conv.Convert(context.Background(), core.Task{URL: "not a url"})
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, input.ErrInvalidURL))
	assert.True(t, strings.HasPrefix(res.Err.Error(), StageValidate+":"))

	res = conv.Convert(context.Background(), core.Task{URL: ""})
	assert.True(t, errors.Is(res.Err, input.ErrInvalidURL))

	res = conv.Convert(context.Background(), core.Task{URL: srv.URL + "/gone"})
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, fetch.ErrUnexpectedStatus))
	assert.True(t, strings.HasPrefix(res.Err.Error(), StageFetch+":"))
	assert.Empty(t, res.Outputs)
}

func TestRunConvertsBatch(t *testing.T) {
	srv := newSite(t)
	dir := t.TempDir()
	conv := newTestConverter(t, dir, false)
	n := &countingNotifier{}

	urls := []string{srv.URL + "/guide", "", srv.URL + "/other", srv.URL + "/gone"}
	summary := NewPool(2, n, dir).Run(context.Background(), urls, conv.Convert)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1, n.count())
	assert.FileExists(t, filepath.Join(dir, "GuideSetup.md"))
	assert.FileExists(t, filepath.Join(dir, "Other.md"))

	// /guide and /other both reference one/a.png; with the shared counter
	// they land on distinct files.
	entries, err := os.ReadDir(filepath.Join(dir, output.DefaultImagesDir))
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

// trackingFetcher records how many Fetch calls overlap.
type trackingFetcher struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (f *trackingFetcher) Fetch(context.Context, string) (*core.Page, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.peak.Load()
		if cur <= old || f.peak.CompareAndSwap(old, cur) {
			break
		}
	}
	time.Sleep(15 * time.Millisecond)
	return &core.Page{Title: "Tracked", HTML: "<p>tracked</p>"}, nil
}

func (f *trackingFetcher) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("no images")
}

func TestRunBoundsConcurrentFetches(t *testing.T) {
	writer, err := output.New(t.TempDir(), "")
	require.NoError(t, err)
	fetcher := &trackingFetcher{}
	conv := NewConverter(Stages{
		Fetcher:    fetcher,
		Normalizer: normalize.New(),
		Renderer:   render.NewMarkdownRenderer(false),
		Rewriter:   rewrite.New("https://example.com"),
		Writer:     writer,
	}, false)

	summary := NewPool(DefaultConcurrency, nil, writer.OutputDir).Run(context.Background(), urlList(12), conv.Convert)

	assert.Equal(t, 12, summary.Succeeded)
	assert.Equal(t, int32(12), fetcher.calls.Load())
	assert.Equal(t, int32(DefaultConcurrency), fetcher.peak.Load())
}

func TestRunEmptyInputFetchesNothing(t *testing.T) {
	writer, err := output.New(t.TempDir(), "")
	require.NoError(t, err)
	fetcher := &trackingFetcher{}
	conv := NewConverter(Stages{Fetcher: fetcher, Writer: writer}, false)
	n := &countingNotifier{}

	summary := NewPool(DefaultConcurrency, n, writer.OutputDir).Run(context.Background(), []string{}, conv.Convert)

	assert.Zero(t, summary.Total)
	assert.Zero(t, fetcher.calls.Load())
	assert.Zero(t, n.count())
	entries, err := os.ReadDir(writer.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
