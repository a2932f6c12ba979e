// Atomic analytics publication. The document file is the only mutable
// resource shared across components; all writes funnel through a single
// Writer so readers never observe a torn document.
package metrics

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	writeAttempts = 3
	writeBackoff  = 100 * time.Millisecond
)

// Writer serializes analytics writes to one path.
type Writer struct {
	mu   sync.Mutex
	path string
}

// NewWriter creates a writer for the given analytics.json path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the destination file.
func (w *Writer) Path() string { return w.path }

// Write publishes the document atomically: marshal, write a temp file in
// the destination directory, rename over the target. Transient failures
// retry with backoff; after the attempt budget the error is logged and
// returned, never panicked.
func (w *Writer) Write(doc *Analytics) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analytics: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		if lastErr = writeRename(dir, w.path, data); lastErr == nil {
			return nil
		}
		slog.Warn("analytics write failed",
			"path", w.path, "attempt", attempt, "error", lastErr)
		time.Sleep(writeBackoff * time.Duration(attempt))
	}
	return fmt.Errorf("write analytics after %d attempts: %w", writeAttempts, lastErr)
}

func writeRename(dir, dst string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".analytics-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
