// Package gcsclient uploads poster photos to Google Cloud Storage
package gcsclient

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// Client implements the pipeline's object-storage port on GCS
type Client struct {
	client *storage.Client
	logger *zap.Logger
}

// New creates a storage client using ambient credentials
func New(ctx context.Context, logger *zap.Logger) (*Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Client{client: client, logger: logger}, nil
}

// Close releases the underlying client
func (c *Client) Close() error {
	return c.client.Close()
}

// Upload writes body to bucket/objectPath and returns the storage path. The
// poster photo bucket is private, so the path is the reference recorded on
// the log; signed access happens server-side.
func (c *Client) Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) (string, error) {
	w := c.client.Bucket(bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", objectPath, err)
	}

	c.logger.Debug("Uploaded photo",
		zap.String("bucket", bucket),
		zap.String("object_path", objectPath))
	return objectPath, nil
}
