// Package upload implements the offline-tolerant poster-log pipeline:
// capture a photo, resolve a GPS fix, compress, upload to object storage and
// atomically commit, falling back to the durable retry queue only when the
// storage upload itself fails.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plakatpatruljen/fieldops/pkg/core/geo"
	"github.com/plakatpatruljen/fieldops/pkg/core/model"
	"github.com/plakatpatruljen/fieldops/pkg/location"
)

// PhotoBucket is the private object-storage bucket for poster photos.
// Uploads return storage paths, never public URLs.
const PhotoBucket = "poster-photos"

// OutcomeKind tags the four possible results of a capture. The asymmetry
// between Offline and Failed is deliberate: only a storage-upload failure is
// queue-eligible; every other error surfaces as Failed with no side effects.
type OutcomeKind string

const (
	KindCancelled OutcomeKind = "cancelled"
	KindOffline   OutcomeKind = "offline"
	KindCommitted OutcomeKind = "committed"
	KindFailed    OutcomeKind = "failed"
)

// Outcome is the tagged result of one CaptureAndUpload invocation
type Outcome struct {
	Kind OutcomeKind

	// Set when Kind == KindCommitted
	LogID       string
	NewCount    int
	NewEarnings float64
	IsComplete  bool

	// The GPS fix attached to the log; (0,0) sentinel when no fix was
	// available. Set for Offline and Committed outcomes.
	Coords geo.Coordinate

	// Underlying cause when Kind == KindFailed
	Err error
}

// Context identifies the claim a capture belongs to
type Context struct {
	TaskClaimID    string
	CampaignID     string
	WorkerID       string
	Type           model.ActionType
	CurrentCount   int
	TargetCount    int
	PricePerPoster float64
}

// Deps are the pipeline's collaborator ports
type Deps struct {
	Camera    Camera
	Processor Processor
	Locator   location.Locator
	Objects   ObjectStore
	Committer Committer
	Pending   PendingSink
	Feedback  Feedback
	Logger    *zap.Logger
}

// Pipeline runs poster-log captures
type Pipeline struct {
	deps Deps
	now  func() time.Time
}

// New creates a pipeline. Feedback defaults to a no-op.
func New(deps Deps) *Pipeline {
	if deps.Feedback == nil {
		deps.Feedback = NopFeedback{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pipeline{deps: deps, now: time.Now}
}

// RuleViolations builds the violation flags recorded on a log created under
// the given compliance snapshot.
func RuleViolations(isInZone, isWithinTime bool) []string {
	violations := []string{}
	if !isInZone {
		violations = append(violations, model.ViolationOutsideZone)
	}
	if !isWithinTime {
		violations = append(violations, model.ViolationOutsideTime)
	}
	return violations
}

// CaptureAndUpload runs the full capture sequence. The compliance flags are a
// snapshot taken at call time; they are recorded, not re-validated mid-upload.
// Exactly one of three side effects happens per invocation: nothing (cancel or
// failure), one pending entry enqueued (offline), or one atomic server commit.
func (p *Pipeline) CaptureAndUpload(
	ctx context.Context,
	uctx Context,
	currentLocation *geo.Coordinate,
	address string,
	isInZone bool,
	isWithinTime bool,
) Outcome {
	// 1. Acquire the photo
	photoURI, err := p.deps.Camera.Capture(ctx)
	if err != nil {
		if errors.Is(err, ErrCaptureCancelled) {
			p.deps.Logger.Debug("Photo capture cancelled",
				zap.String("task_claim_id", uctx.TaskClaimID))
			return Outcome{Kind: KindCancelled}
		}
		return p.failed(uctx, fmt.Errorf("failed to capture photo: %w", err))
	}

	// 2. Resolve a GPS fix. Photo evidence outranks perfect coordinates, so
	// a missing fix degrades to the (0,0) sentinel instead of aborting.
	coords := geo.Coordinate{}
	if currentLocation != nil {
		coords = *currentLocation
	} else if p.deps.Locator != nil {
		fix, locErr := p.deps.Locator.Current(ctx)
		if locErr != nil {
			p.deps.Logger.Warn("No GPS fix for poster log, using sentinel coordinates",
				zap.Error(locErr),
				zap.String("task_claim_id", uctx.TaskClaimID))
		} else {
			coords = fix
		}
	}

	// 3. Compress for upload. An unreadable image cannot be evidence, so this
	// is a hard failure rather than a fallback.
	processedURI, err := p.deps.Processor.Process(ctx, photoURI)
	if err != nil {
		return p.failed(uctx, fmt.Errorf("failed to process photo: %w", err))
	}

	// 4. Compliance flags become immutable violation records
	violations := RuleViolations(isInZone, isWithinTime)

	params := model.RecordPosterLogParams{
		TaskClaimID:    uctx.TaskClaimID,
		CampaignID:     uctx.CampaignID,
		WorkerID:       uctx.WorkerID,
		Type:           string(uctx.Type),
		Latitude:       coords.Latitude,
		Longitude:      coords.Longitude,
		RuleViolations: violations,
	}
	if address != "" {
		params.Address = &address
	}

	// 5. Upload the photo blob
	objectPath := fmt.Sprintf("%s/%s/%d.jpg", uctx.CampaignID, uctx.WorkerID, p.now().UnixMilli())

	body, err := os.Open(processedURI)
	if err != nil {
		return p.failed(uctx, fmt.Errorf("failed to read processed photo: %w", err))
	}
	photoURL, uploadErr := p.deps.Objects.Upload(ctx, PhotoBucket, objectPath, "image/jpeg", body)
	body.Close()

	if uploadErr != nil {
		// Offline fallback: the photo stays local and the commit parameters
		// go to the durable queue. PhotoURL is filled in on retry, after the
		// deferred upload succeeds.
		entry := model.PendingPosterLog{
			ID:         uuid.New().String(),
			PhotoURI:   processedURI,
			Params:     params,
			CreatedAt:  p.now(),
			RetryCount: 0,
		}
		if qErr := p.deps.Pending.AddPending(entry); qErr != nil {
			return p.failed(uctx, fmt.Errorf("failed to queue pending poster log: %w", qErr))
		}

		p.deps.Logger.Info("Photo upload failed, poster log queued for retry",
			zap.Error(uploadErr),
			zap.String("pending_id", entry.ID),
			zap.String("task_claim_id", uctx.TaskClaimID))
		return Outcome{Kind: KindOffline, Coords: coords}
	}

	// 6. Atomic remote commit. A failure here is NOT queued: the photo is
	// already in storage and re-running the commit blindly could double-count
	// the poster. The worker retries the whole capture instead.
	params.PhotoURL = photoURL
	result, err := p.deps.Committer.RecordPosterLog(ctx, params)
	if err != nil {
		return p.failed(uctx, fmt.Errorf("failed to record poster log: %w", err))
	}

	// 7. Confirm to the worker
	p.deps.Feedback.Success(ctx)

	p.deps.Logger.Info("Poster log committed",
		zap.String("log_id", result.LogID),
		zap.Int("new_count", result.NewCount),
		zap.Bool("is_complete", result.IsComplete),
		zap.Strings("rule_violations", violations))

	return Outcome{
		Kind:        KindCommitted,
		LogID:       result.LogID,
		NewCount:    result.NewCount,
		NewEarnings: result.NewEarnings,
		IsComplete:  result.IsComplete,
		Coords:      coords,
	}
}

func (p *Pipeline) failed(uctx Context, err error) Outcome {
	p.deps.Logger.Error("Poster upload failed",
		zap.Error(err),
		zap.String("task_claim_id", uctx.TaskClaimID))
	return Outcome{Kind: KindFailed, Err: err}
}
