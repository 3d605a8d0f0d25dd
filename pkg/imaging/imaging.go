// Package imaging prepares captured poster photos for upload: decode, scale
// down to a bounded width and re-encode as JPEG so uploads stay small on slow
// mobile links.
package imaging

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

const (
	// MaxWidth is the output width photos are scaled down to. Narrower
	// photos pass through at their original size.
	MaxWidth = 1200

	// Quality is the JPEG encode quality for processed photos
	Quality = 70
)

// Processor resizes and re-encodes photos into a working directory
type Processor struct {
	workDir string
	logger  *zap.Logger
}

// NewProcessor creates a processor writing into workDir. An empty workDir
// falls back to the system temp directory.
func NewProcessor(workDir string, logger *zap.Logger) *Processor {
	if workDir == "" {
		workDir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{workDir: workDir, logger: logger}
}

// Process decodes the photo at photoURI, scales it to at most MaxWidth wide
// preserving aspect ratio, encodes it as JPEG and returns the output path.
func (p *Processor) Process(ctx context.Context, photoURI string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	in, err := os.Open(photoURI)
	if err != nil {
		return "", fmt.Errorf("failed to open photo: %w", err)
	}
	defer in.Close()

	src, format, err := image.Decode(in)
	if err != nil {
		return "", fmt.Errorf("failed to decode photo: %w", err)
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	out := src
	if width > MaxWidth {
		scaled := image.NewRGBA(image.Rect(0, 0, MaxWidth, height*MaxWidth/width))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		out = scaled
	}

	outPath := filepath.Join(p.workDir, uuid.New().String()+".jpg")
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create processed photo: %w", err)
	}

	if err := jpeg.Encode(f, out, &jpeg.Options{Quality: Quality}); err != nil {
		f.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("failed to encode photo: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to flush processed photo: %w", err)
	}

	p.logger.Debug("Processed photo",
		zap.String("format", format),
		zap.Int("source_width", width),
		zap.Int("output_width", min(width, MaxWidth)),
		zap.String("output_path", outPath))
	return outPath, nil
}
