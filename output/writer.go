package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/use-agent/shelfprobe/config"
	"github.com/use-agent/shelfprobe/models"
)

// Writer persists run artefacts under one directory with fixed file names.
type Writer struct {
	dir   string
	names config.OutputConfig
}

// NewWriter returns a Writer for dir; an empty dir falls back to the
// configured output directory.
func NewWriter(dir string, names config.OutputConfig) *Writer {
	if dir == "" {
		dir = names.Dir
	}
	if dir == "" {
		dir = "."
	}
	return &Writer{dir: dir, names: names}
}

// Path returns the full path of an output file name.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteProduct writes the DOM-mode record text. It is written even when
// empty.
func (w *Writer) WriteProduct(text string) (string, error) {
	return w.write(w.names.ProductFile, []byte(text))
}

// WriteCatalog writes the catalog blocks.
func (w *Writer) WriteCatalog(text string) (string, error) {
	return w.write(w.names.CatalogFile, []byte(text))
}

// WriteHTML writes the page snapshot.
func (w *Writer) WriteHTML(html string) (string, error) {
	return w.write(w.names.HTMLFile, []byte(html))
}

// WriteScreenshot writes the JPEG capture.
func (w *Writer) WriteScreenshot(jpeg []byte) (string, error) {
	return w.write(w.names.ScreenshotFile, jpeg)
}

// write replaces name atomically so readers never see a partial file.
func (w *Writer) write(name string, data []byte) (string, error) {
	path := w.Path(name)
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", models.NewScrapeError(models.ErrCodeOutput, "cannot create output directory", err)
	}
	tmp, err := os.CreateTemp(w.dir, "."+name+".*")
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeOutput, fmt.Sprintf("cannot write %s", name), err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", models.NewScrapeError(models.ErrCodeOutput, fmt.Sprintf("cannot write %s", name), err)
	}
	if err := tmp.Close(); err != nil {
		return "", models.NewScrapeError(models.ErrCodeOutput, fmt.Sprintf("cannot write %s", name), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", models.NewScrapeError(models.ErrCodeOutput, fmt.Sprintf("cannot write %s", name), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", models.NewScrapeError(models.ErrCodeOutput, fmt.Sprintf("cannot write %s", name), err)
	}
	return path, nil
}
