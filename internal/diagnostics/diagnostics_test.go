package diagnostics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatcap/internal/browser/browsertest"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestCaptureWritesPNG(t *testing.T) {
	p := browsertest.New()
	p.PNG = pngMagic
	path := filepath.Join(t.TempDir(), "shots", "last-failed.png")

	require.NoError(t, NewFileSnapshotter(path).Capture(context.Background(), p))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngMagic, got)

	// A second capture replaces the first.
	p.PNG = append(append([]byte(nil), pngMagic...), 1, 2, 3)
	require.NoError(t, NewFileSnapshotter(path).Capture(context.Background(), p))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, len(pngMagic)+3)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestCaptureErrors(t *testing.T) {
	p := browsertest.New()
	path := filepath.Join(t.TempDir(), "last-failed.png")

	assert.Error(t, NewFileSnapshotter(path).Capture(context.Background(), p), "empty screenshot")

	p.ScreenshotErr = errors.New("target closed")
	err := NewFileSnapshotter(path).Capture(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target closed")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	assert.Error(t, (&FileSnapshotter{}).Capture(context.Background(), p))
}
