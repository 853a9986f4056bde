// Package brief writes generated briefs and raw post payloads to the
// briefs directory, named by date so successive runs on the same day
// overwrite each other.
package brief

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avoronov/xscout/app/scout"
)

const dateLayout = "2006-01-02"

type Writer struct {
	briefsDir string
}

func NewWriter(briefsDir string) *Writer {
	return &Writer{briefsDir: briefsDir}
}

// WriteBrief saves the markdown brief and returns its path.
func (w *Writer) WriteBrief(content string, now time.Time) (string, error) {
	if err := w.ensureDir(); err != nil {
		return "", err
	}

	path := filepath.Join(w.briefsDir, now.Format(dateLayout)+".md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write brief: %w", err)
	}
	return path, nil
}

// WritePosts saves the raw posts payload next to the brief and returns
// its path.
func (w *Writer) WritePosts(payload *scout.Payload, now time.Time) (string, error) {
	if err := w.ensureDir(); err != nil {
		return "", err
	}

	data, err := payload.JSON()
	if err != nil {
		return "", err
	}

	path := filepath.Join(w.briefsDir, now.Format(dateLayout)+"-posts.json")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return "", fmt.Errorf("failed to write posts: %w", err)
	}
	return path, nil
}

func (w *Writer) ensureDir() error {
	if err := os.MkdirAll(w.briefsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create briefs directory: %w", err)
	}
	return nil
}
