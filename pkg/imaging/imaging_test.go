package imaging

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plakatpatruljen/fieldops/pkg/core/upload"
)

func writeJPEG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "in.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, nil))
	require.NoError(t, f.Close())
	return path
}

func decodeSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestProcessor_ScalesWidePhotosDown(t *testing.T) {
	p := NewProcessor(t.TempDir(), zap.NewNop())
	in := writeJPEG(t, 2400, 1600)

	out, err := p.Process(context.Background(), in)
	require.NoError(t, err)

	w, h := decodeSize(t, out)
	assert.Equal(t, MaxWidth, w)
	assert.Equal(t, 800, h)
}

func TestProcessor_KeepsNarrowPhotos(t *testing.T) {
	p := NewProcessor(t.TempDir(), zap.NewNop())
	in := writeJPEG(t, 640, 480)

	out, err := p.Process(context.Background(), in)
	require.NoError(t, err)

	w, h := decodeSize(t, out)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.NotEqual(t, in, out)
}

func TestProcessor_RejectsUnreadableInput(t *testing.T) {
	p := NewProcessor(t.TempDir(), zap.NewNop())

	_, err := p.Process(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	require.Error(t, err)
}

func TestProcessor_RejectsCorruptInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a jpeg"), 0o644))

	p := NewProcessor(dir, zap.NewNop())
	_, err := p.Process(context.Background(), path)
	require.Error(t, err)
}

func TestProcessor_HonorsCancelledContext(t *testing.T) {
	p := NewProcessor(t.TempDir(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, writeJPEG(t, 100, 100))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileCamera(t *testing.T) {
	path := writeJPEG(t, 10, 10)

	got, err := FileCamera{Path: path}.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, got)

	_, err = FileCamera{}.Capture(context.Background())
	assert.ErrorIs(t, err, upload.ErrCaptureCancelled)

	_, err = FileCamera{Path: filepath.Join(t.TempDir(), "nope.jpg")}.Capture(context.Background())
	require.Error(t, err)
}
