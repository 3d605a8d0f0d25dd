package upload

import (
	"context"
	"errors"
	"io"

	"github.com/plakatpatruljen/fieldops/pkg/core/model"
)

// ErrCaptureCancelled is returned by a Camera when the user backs out of the
// capture flow. Cancellation is not an error condition for the pipeline.
var ErrCaptureCancelled = errors.New("photo capture cancelled")

// Camera acquires one photo and returns the local URI of the captured file
type Camera interface {
	Capture(ctx context.Context) (string, error)
}

// Processor compresses/resizes a captured photo for upload, returning the
// URI of the processed file.
type Processor interface {
	Process(ctx context.Context, photoURI string) (string, error)
}

// ObjectStore uploads a photo blob to durable object storage. For private
// buckets the returned string is the storage path, not a public URL.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) (string, error)
}

// Committer invokes the atomic record_poster_log endpoint: one server-side
// transaction inserting the log row, incrementing the claim counters and
// flipping the claim status when the target count is reached.
type Committer interface {
	RecordPosterLog(ctx context.Context, params model.RecordPosterLogParams) (model.CommitResult, error)
}

// PendingSink accepts poster logs that could not be committed synchronously
type PendingSink interface {
	AddPending(entry model.PendingPosterLog) error
}

// Feedback delivers success feedback to the worker (haptics on device)
type Feedback interface {
	Success(ctx context.Context)
}

// NopFeedback discards feedback
type NopFeedback struct{}

func (NopFeedback) Success(ctx context.Context) {}
