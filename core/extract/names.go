package extract

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
)

// FilenameCounter maps a base filename to the number of times it was seen.
// The first occurrence keeps its name; the Nth (0-indexed) becomes stem(N).ext.
// It is safe for concurrent use, so one counter may be shared by every task
// of a run.
type FilenameCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewFilenameCounter creates an empty FilenameCounter.
func NewFilenameCounter() *FilenameCounter {
	return &FilenameCounter{counts: make(map[string]int)}
}

// Next returns the disambiguated name for base and records the occurrence.
func (c *FilenameCounter) Next(base string) string {
	c.mu.Lock()
	n := c.counts[base]
	c.counts[base] = n + 1
	c.mu.Unlock()
	return Disambiguate(base, n)
}

// count returns how many times base has been recorded.
func (c *FilenameCounter) count(base string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[base]
}

// Disambiguate inserts "(n)" before the extension of name. n == 0 returns
// name unchanged.
func Disambiguate(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s(%d)%s", stem, n, ext)
}

// BaseName returns the last path segment of rawURL's path.
// Both / and \ are treated as separators.
func BaseName(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing image URL: %w", err)
	}
	return lastSegment(parsed.Path), nil
}

func lastSegment(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
