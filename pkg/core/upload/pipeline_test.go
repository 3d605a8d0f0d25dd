package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plakatpatruljen/fieldops/pkg/core/geo"
	"github.com/plakatpatruljen/fieldops/pkg/core/model"
)

type mockCamera struct {
	uri string
	err error
}

func (m *mockCamera) Capture(ctx context.Context) (string, error) {
	return m.uri, m.err
}

type mockProcessor struct {
	uri string
	err error
}

func (m *mockProcessor) Process(ctx context.Context, photoURI string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.uri != "" {
		return m.uri, nil
	}
	return photoURI, nil
}

type mockLocator struct {
	coord geo.Coordinate
	err   error
}

func (m *mockLocator) Current(ctx context.Context) (geo.Coordinate, error) {
	return m.coord, m.err
}

type mockObjects struct {
	err     error
	uploads []string
}

func (m *mockObjects) Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.uploads = append(m.uploads, objectPath)
	return objectPath, nil
}

type mockCommitter struct {
	result  model.CommitResult
	err     error
	commits []model.RecordPosterLogParams
}

func (m *mockCommitter) RecordPosterLog(ctx context.Context, params model.RecordPosterLogParams) (model.CommitResult, error) {
	if m.err != nil {
		return model.CommitResult{}, m.err
	}
	m.commits = append(m.commits, params)
	return m.result, nil
}

type mockSink struct {
	err     error
	entries []model.PendingPosterLog
}

func (m *mockSink) AddPending(entry model.PendingPosterLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

type mockFeedback struct {
	calls int
}

func (m *mockFeedback) Success(ctx context.Context) { m.calls++ }

func testPhoto(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "poster.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o644))
	return path
}

func testContext() Context {
	return Context{
		TaskClaimID:    "claim-1",
		CampaignID:     "camp-1",
		WorkerID:       "worker-1",
		Type:           model.ActionHang,
		CurrentCount:   3,
		TargetCount:    10,
		PricePerPoster: 12.5,
	}
}

func newTestPipeline(t *testing.T, deps Deps) (*Pipeline, *mockObjects, *mockCommitter, *mockSink) {
	t.Helper()
	objects := &mockObjects{}
	committer := &mockCommitter{result: model.CommitResult{
		LogID:       "log-1",
		NewCount:    4,
		NewEarnings: 50,
		Status:      "in_progress",
	}}
	sink := &mockSink{}

	if deps.Camera == nil {
		deps.Camera = &mockCamera{uri: testPhoto(t)}
	}
	if deps.Processor == nil {
		deps.Processor = &mockProcessor{}
	}
	if deps.Objects == nil {
		deps.Objects = objects
	}
	if deps.Committer == nil {
		deps.Committer = committer
	}
	if deps.Pending == nil {
		deps.Pending = sink
	}
	deps.Logger = zap.NewNop()

	return New(deps), objects, committer, sink
}

func TestCaptureAndUpload_Committed(t *testing.T) {
	feedback := &mockFeedback{}
	p, objects, committer, sink := newTestPipeline(t, Deps{Feedback: feedback})

	loc := &geo.Coordinate{Latitude: 55.676, Longitude: 12.568}
	outcome := p.CaptureAndUpload(context.Background(), testContext(), loc, "Nørrebrogade 1", true, true)

	require.Equal(t, KindCommitted, outcome.Kind)
	assert.Equal(t, "log-1", outcome.LogID)
	assert.Equal(t, 4, outcome.NewCount)
	assert.InDelta(t, 50, outcome.NewEarnings, 1e-9)
	assert.Equal(t, *loc, outcome.Coords)

	// Exactly one upload, one commit, no queue entry
	assert.Len(t, objects.uploads, 1)
	require.Len(t, committer.commits, 1)
	assert.Empty(t, sink.entries)
	assert.Equal(t, 1, feedback.calls)

	params := committer.commits[0]
	assert.Equal(t, "claim-1", params.TaskClaimID)
	assert.Equal(t, "hang", params.Type)
	assert.NotEmpty(t, params.PhotoURL)
	require.NotNil(t, params.Address)
	assert.Equal(t, "Nørrebrogade 1", *params.Address)
	assert.Empty(t, params.RuleViolations)
}

func TestCaptureAndUpload_RecordsViolations(t *testing.T) {
	p, _, committer, _ := newTestPipeline(t, Deps{})

	loc := &geo.Coordinate{Latitude: 55.7, Longitude: 12.5}
	outcome := p.CaptureAndUpload(context.Background(), testContext(), loc, "", false, false)

	require.Equal(t, KindCommitted, outcome.Kind)
	require.Len(t, committer.commits, 1)
	assert.Equal(t,
		[]string{model.ViolationOutsideZone, model.ViolationOutsideTime},
		committer.commits[0].RuleViolations)
	assert.Nil(t, committer.commits[0].Address)
}

func TestCaptureAndUpload_Cancelled(t *testing.T) {
	p, objects, committer, sink := newTestPipeline(t, Deps{
		Camera: &mockCamera{err: ErrCaptureCancelled},
	})

	outcome := p.CaptureAndUpload(context.Background(), testContext(), nil, "", true, true)

	assert.Equal(t, KindCancelled, outcome.Kind)
	// No side effects at all
	assert.Empty(t, objects.uploads)
	assert.Empty(t, committer.commits)
	assert.Empty(t, sink.entries)
}

func TestCaptureAndUpload_OfflineOnUploadFailure(t *testing.T) {
	failing := &mockObjects{err: errors.New("no route to host")}
	p, _, committer, sink := newTestPipeline(t, Deps{Objects: failing})

	loc := &geo.Coordinate{Latitude: 55.676, Longitude: 12.568}
	outcome := p.CaptureAndUpload(context.Background(), testContext(), loc, "", true, false)

	require.Equal(t, KindOffline, outcome.Kind)
	assert.Equal(t, *loc, outcome.Coords)

	// One queue entry, no commit
	require.Len(t, sink.entries, 1)
	assert.Empty(t, committer.commits)

	entry := sink.entries[0]
	assert.NotEmpty(t, entry.ID)
	assert.NotEmpty(t, entry.PhotoURI)
	assert.Zero(t, entry.RetryCount)
	// PhotoURL stays empty until the retry upload succeeds
	assert.Empty(t, entry.Params.PhotoURL)
	assert.Equal(t, []string{model.ViolationOutsideTime}, entry.Params.RuleViolations)
}

func TestCaptureAndUpload_FailedOnCommitError(t *testing.T) {
	committer := &mockCommitter{err: errors.New("rpc exploded")}
	p, objects, _, sink := newTestPipeline(t, Deps{Committer: committer})

	outcome := p.CaptureAndUpload(context.Background(), testContext(), nil, "", true, true)

	require.Equal(t, KindFailed, outcome.Kind)
	require.Error(t, outcome.Err)
	// The photo was uploaded, but a commit failure is deliberately NOT
	// queued; the worker retries the whole capture
	assert.Len(t, objects.uploads, 1)
	assert.Empty(t, sink.entries)
}

func TestCaptureAndUpload_FailedOnProcessorError(t *testing.T) {
	p, objects, committer, sink := newTestPipeline(t, Deps{
		Processor: &mockProcessor{err: errors.New("corrupt jpeg")},
	})

	outcome := p.CaptureAndUpload(context.Background(), testContext(), nil, "", true, true)

	assert.Equal(t, KindFailed, outcome.Kind)
	assert.Empty(t, objects.uploads)
	assert.Empty(t, committer.commits)
	assert.Empty(t, sink.entries)
}

func TestCaptureAndUpload_SentinelCoordsWhenNoFix(t *testing.T) {
	p, _, committer, _ := newTestPipeline(t, Deps{
		Locator: &mockLocator{err: errors.New("gps timeout")},
	})

	outcome := p.CaptureAndUpload(context.Background(), testContext(), nil, "", true, true)

	require.Equal(t, KindCommitted, outcome.Kind)
	assert.Zero(t, outcome.Coords.Latitude)
	assert.Zero(t, outcome.Coords.Longitude)
	require.Len(t, committer.commits, 1)
	assert.Zero(t, committer.commits[0].Latitude)
}

func TestCaptureAndUpload_FreshFixWhenNoCallerLocation(t *testing.T) {
	p, _, committer, _ := newTestPipeline(t, Deps{
		Locator: &mockLocator{coord: geo.Coordinate{Latitude: 56.15, Longitude: 10.21}},
	})

	outcome := p.CaptureAndUpload(context.Background(), testContext(), nil, "", true, true)

	require.Equal(t, KindCommitted, outcome.Kind)
	assert.InDelta(t, 56.15, outcome.Coords.Latitude, 1e-9)
	require.Len(t, committer.commits, 1)
	assert.InDelta(t, 10.21, committer.commits[0].Longitude, 1e-9)
}

func TestCaptureAndUpload_FailedWhenPendingSinkFails(t *testing.T) {
	p, _, committer, _ := newTestPipeline(t, Deps{
		Objects: &mockObjects{err: errors.New("offline")},
		Pending: &mockSink{err: errors.New("disk full")},
	})

	outcome := p.CaptureAndUpload(context.Background(), testContext(), nil, "", true, true)

	assert.Equal(t, KindFailed, outcome.Kind)
	assert.Empty(t, committer.commits)
}

func TestRuleViolations(t *testing.T) {
	assert.Empty(t, RuleViolations(true, true))
	assert.Equal(t, []string{model.ViolationOutsideZone}, RuleViolations(false, true))
	assert.Equal(t, []string{model.ViolationOutsideTime}, RuleViolations(true, false))
	assert.Equal(t,
		[]string{model.ViolationOutsideZone, model.ViolationOutsideTime},
		RuleViolations(false, false))
}
