// Package fetch implements the Fetcher interface.
// It performs HTTP GET requests with retries, parses pages with goquery and
// streams image bodies for the extractor.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gaurav-prasanna/mdbatch/core"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultUserAgent  = "mdbatch/1.0 (https://github.com/gaurav-prasanna/mdbatch)"
	defaultMaxRetries = 2
)

// RetryBaseDelay is the first backoff delay between attempts. Tests override
// it to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Options configures an HTTPFetcher.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	MaxRetries int
	Client     *http.Client
}

// HTTPFetcher fetches web pages and images via HTTP.
type HTTPFetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
}

// New creates an HTTPFetcher with sensible defaults.
func New() *HTTPFetcher {
	return NewWithOptions(Options{})
}

// NewWithOptions creates an HTTPFetcher from opts, filling in defaults.
// A negative MaxRetries disables retries.
func NewWithOptions(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPFetcher{
		client:     client,
		userAgent:  opts.UserAgent,
		maxRetries: opts.MaxRetries,
	}
}

// Fetch retrieves the page at url and parses its title and images.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.Page, error) {
	body, status, err := f.get(ctx, url, "text/html,application/xhtml+xml")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	page, err := ParsePage(url, string(data))
	if err != nil {
		return nil, err
	}
	page.StatusCode = status
	return page, nil
}

// Open streams the resource at url. The caller closes the returned reader.
func (f *HTTPFetcher) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	body, _, err := f.get(ctx, url, "image/*,*/*;q=0.8")
	return body, err
}

// get performs a GET with retries on transport errors, 429 and 5xx.
func (f *HTTPFetcher) get(ctx context.Context, url, accept string) (io.ReadCloser, int, error) {
	var (
		body   io.ReadCloser
		status int
	)
	backoff := retry.WithMaxRetries(uint64(f.maxRetries), retry.NewExponential(RetryBaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", accept)

		resp, err := f.client.Do(req)
		if err != nil {
			log.Debug().Err(err).Str("url", url).Msg("request failed, retrying")
			return retry.RetryableError(fmt.Errorf("fetching %s: %w", url, err))
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			statusErr := fmt.Errorf("%w %d for %s", ErrUnexpectedStatus, resp.StatusCode, url)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				log.Debug().Int("status", resp.StatusCode).Str("url", url).Msg("retryable status")
				return retry.RetryableError(statusErr)
			}
			return statusErr
		}

		body = resp.Body
		status = resp.StatusCode
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return body, status, nil
}
