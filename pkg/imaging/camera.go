package imaging

import (
	"context"
	"fmt"
	"os"

	"github.com/plakatpatruljen/fieldops/pkg/core/upload"
)

// FileCamera satisfies the capture port with a photo already on disk. It is
// the capture source for the CLI, where the photo comes from a file argument
// rather than a device camera.
type FileCamera struct {
	Path string
}

// Capture verifies the file exists and returns its path. An empty path is
// treated as the user backing out of the capture.
func (c FileCamera) Capture(ctx context.Context) (string, error) {
	if c.Path == "" {
		return "", upload.ErrCaptureCancelled
	}
	if _, err := os.Stat(c.Path); err != nil {
		return "", fmt.Errorf("failed to read photo file: %w", err)
	}
	return c.Path, nil
}
