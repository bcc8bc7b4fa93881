// Package output handles file naming and writing for mdbatch.
// Documents are named after their page title and written flat into the
// output directory; images go to a shared images subdirectory.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultName is used when a page has no usable title.
	DefaultName = "output"
	// DefaultImagesDir is the images subdirectory under the output directory.
	DefaultImagesDir = "images"

	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// Writer writes documents and images to disk.
type Writer struct {
	OutputDir string
	ImagesDir string
}

// New creates a Writer targeting outputDir, with images under
// outputDir/imagesDir. Empty values default to the working directory and
// "images".
func New(outputDir, imagesDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}
	if imagesDir == "" {
		imagesDir = DefaultImagesDir
	}

	if err := os.MkdirAll(outputDir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{
		OutputDir: outputDir,
		ImagesDir: filepath.Join(outputDir, imagesDir),
	}, nil
}

// Filename derives a filesystem-safe document name from a page title: every
// character outside letters, digits, '-', '_' and '.' is removed. An empty
// result falls back to DefaultName.
func Filename(title string) string {
	var b strings.Builder
	for _, ch := range strings.TrimSpace(title) {
		if isAllowed(ch) {
			b.WriteRune(ch)
		}
	}
	name := b.String()
	if name == "" || name == "." || name == ".." {
		return DefaultName
	}
	return name
}

func isAllowed(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '_' || ch == '.'
}

// WriteDocument writes data to OutputDir/name+ext in a single write.
// An existing file with the same name is replaced.
func (w *Writer) WriteDocument(name, ext string, data []byte) (string, error) {
	path := filepath.Join(w.OutputDir, name+ext)
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// EnsureImagesDir creates the images directory and any missing parents.
// It is idempotent and safe to call from several goroutines at once.
func (w *Writer) EnsureImagesDir() error {
	if err := os.MkdirAll(w.ImagesDir, dirPerm); err != nil {
		return fmt.Errorf("creating images directory: %w", err)
	}
	return nil
}

// SaveImage streams r into ImagesDir/name. Data goes to a temporary file
// that is renamed into place, so readers never observe a partial image.
func (w *Writer) SaveImage(name string, r io.Reader) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	dest := filepath.Join(w.ImagesDir, name)
	if err := copyAtomic(dest, r); err != nil {
		return "", err
	}
	return dest, nil
}

// copyAtomic writes reader to filename via a temporary file in the same
// directory followed by a rename.
func copyAtomic(filename string, reader io.Reader) error {
	dir := filepath.Dir(filename)
	if dir == "" {
		return errors.New("empty dir path")
	}
	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tempFile.Name()
	if _, err := io.Copy(tempFile, reader); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("copy to temp: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}
