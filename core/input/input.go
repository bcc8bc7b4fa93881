// Package input reads the list of page URLs for a batch run.
// Every line is one task; malformed lines are kept so they fail as
// individual tasks instead of aborting the batch.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

var (
	ErrInvalidURL = errors.New("invalid URL")
	ErrNoFile     = errors.New("no file selected")
)

// ReadURLs returns one entry per line of r, trimmed of surrounding
// whitespace. A trailing newline does not produce an extra entry. Lines
// have no length limit.
func ReadURLs(r io.Reader) ([]string, error) {
	reader := bufio.NewReader(r)

	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 || err == nil {
			if len(lines) == 0 {
				line = strings.TrimPrefix(line, "\ufeff")
			}
			lines = append(lines, strings.TrimSpace(line))
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading URL list: %w", err)
		}
	}
}

// ReadFile reads the URL list at path.
func ReadFile(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoFile
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening URL list: %w", err)
	}
	defer f.Close()
	return ReadURLs(f)
}

// ValidateURL checks that rawURL is an absolute http(s) URL with a host and
// returns it with any fragment removed.
func ValidateURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidURL, rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w %q: scheme must be http or https", ErrInvalidURL, rawURL)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w %q: missing host", ErrInvalidURL, rawURL)
	}
	parsed.Fragment = ""
	return parsed.String(), nil
}
