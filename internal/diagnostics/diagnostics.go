// Package diagnostics captures the page of a failed run for later
// inspection.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"seatcap/internal/browser"
)

// DefaultTimeout bounds one capture.
const DefaultTimeout = 15 * time.Second

// Snapshotter records the current page of d.
type Snapshotter interface {
	Capture(ctx context.Context, d browser.Driver) error
}

// FileSnapshotter writes a full-page PNG to Path, replacing the previous
// capture.
type FileSnapshotter struct {
	// Path is where the PNG is written, e.g. "/tmp/last-failed.png".
	Path string

	// Timeout bounds the capture. If zero, DefaultTimeout is used.
	Timeout time.Duration
}

func NewFileSnapshotter(path string) *FileSnapshotter {
	return &FileSnapshotter{Path: path, Timeout: DefaultTimeout}
}

// Capture screenshots the page and writes it atomically, so a concurrent
// reader never sees a partial image.
func (s *FileSnapshotter) Capture(parent context.Context, d browser.Driver) error {
	if s.Path == "" {
		return errors.New("diagnostics: Path is required")
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	png, err := d.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("diagnostics: screenshot failed: %w", err)
	}
	if len(png) == 0 {
		return errors.New("diagnostics: screenshot is empty")
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("diagnostics: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".seatcap-shot-*.png")
	if err != nil {
		return fmt.Errorf("diagnostics: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return fmt.Errorf("diagnostics: failed to write PNG: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("diagnostics: failed to write PNG: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("diagnostics: %w", err)
	}
	return os.Rename(tmp.Name(), s.Path)
}
