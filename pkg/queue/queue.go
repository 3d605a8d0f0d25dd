// Package queue implements the durable offline retry queue for poster logs:
// pending entries survive restarts via an injectable Store, are flushed on a
// timer and immediately on enqueue, gated by a connectivity probe, with a
// per-entry retry cap and one flush pass at a time.
package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/plakatpatruljen/fieldops/pkg/core/model"
	"github.com/plakatpatruljen/fieldops/pkg/core/upload"
)

// ErrFlushInProgress is returned when a flush is requested while another pass
// is running. At most one flush pass runs at a time.
var ErrFlushInProgress = errors.New("flush already in progress")

const (
	// DefaultFlushInterval is the recurring background flush cadence
	DefaultFlushInterval = 30 * time.Second

	// DefaultMaxRetries caps retry attempts per entry. Entries at the cap are
	// skipped on every pass but stay in the queue; CappedCount surfaces them
	// so the UI can show a permanent-failure indicator.
	DefaultMaxRetries = 5
)

// Store is the durable persistence port for pending entries. Implementations
// must survive process restarts; an in-memory implementation exists for tests.
type Store interface {
	Load() ([]model.PendingPosterLog, error)
	Put(entry model.PendingPosterLog) error
	Delete(id string) error
}

// NetworkState is the connectivity probe result
type NetworkState struct {
	IsConnected         bool
	IsInternetReachable bool
}

// Online reports whether network I/O is worth attempting
func (s NetworkState) Online() bool {
	return s.IsConnected && s.IsInternetReachable
}

// ConnectivityProbe checks network reachability before a flush touches the
// network.
type ConnectivityProbe interface {
	NetworkState(ctx context.Context) (NetworkState, error)
}

// FlushStats summarizes one flush pass
type FlushStats struct {
	Attempted int
	Committed int
	Failed    int
	Skipped   int
}

// Config tunes queue behavior. Zero values select defaults.
type Config struct {
	FlushInterval time.Duration
	MaxRetries    int
}

// Queue is the durable offline retry queue
type Queue struct {
	store     Store
	probe     ConnectivityProbe
	objects   upload.ObjectStore
	committer upload.Committer
	logger    *zap.Logger
	cfg       Config

	mu       sync.Mutex
	entries  []model.PendingPosterLog
	retrying bool

	kick    chan struct{}
	metrics *queueMetrics
	now     func() time.Time
}

// New creates a queue and loads any entries persisted by a previous run.
func New(
	store Store,
	probe ConnectivityProbe,
	objects upload.ObjectStore,
	committer upload.Committer,
	logger *zap.Logger,
	cfg Config,
) (*Queue, error) {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load pending poster logs: %w", err)
	}

	q := &Queue{
		store:     store,
		probe:     probe,
		objects:   objects,
		committer: committer,
		logger:    logger,
		cfg:       cfg,
		entries:   entries,
		kick:      make(chan struct{}, 1),
		now:       time.Now,
	}

	if len(entries) > 0 {
		logger.Info("Loaded pending poster logs from previous run",
			zap.Int("count", len(entries)))
		// Entries persisted before a restart should not wait out a full
		// flush interval
		q.kick <- struct{}{}
	}
	return q, nil
}

// RegisterMetrics attaches prometheus gauges/counters to the queue. Call at
// most once; a nil registerer is a no-op.
func (q *Queue) RegisterMetrics(reg registerer) {
	if reg == nil {
		return
	}
	q.metrics = newQueueMetrics(reg)
	q.metrics.pending.Set(float64(q.PendingCount()))
}

// AddPending appends an entry and persists it immediately, then kicks an
// immediate background flush. Implements upload.PendingSink.
func (q *Queue) AddPending(entry model.PendingPosterLog) error {
	if err := q.store.Put(entry); err != nil {
		return fmt.Errorf("failed to persist pending poster log: %w", err)
	}

	q.mu.Lock()
	q.entries = append(q.entries, entry)
	count := len(q.entries)
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.pending.Set(float64(count))
	}
	q.logger.Info("Pending poster log enqueued",
		zap.String("pending_id", entry.ID),
		zap.Int("pending_count", count))

	// Non-blocking: a queued kick already covers this entry
	select {
	case q.kick <- struct{}{}:
	default:
	}
	return nil
}

// PendingCount returns the number of queued entries, capped ones included
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// CappedCount returns how many entries have exhausted their retries and will
// not be retried automatically.
func (q *Queue) CappedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, e := range q.entries {
		if e.RetryCount >= q.cfg.MaxRetries {
			n++
		}
	}
	return n
}

// IsRetrying reports whether a flush pass is currently running
func (q *Queue) IsRetrying() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.retrying
}

// Flush runs one pass over the queue: for every entry under the retry cap,
// re-upload the cached photo and invoke the atomic commit. Entries are
// removed only on success; a failed entry has its retry count bumped and is
// revisited at its original position next pass. One stuck entry never blocks
// the others. Returns ErrFlushInProgress when a pass is already running.
func (q *Queue) Flush(ctx context.Context) (FlushStats, error) {
	q.mu.Lock()
	if q.retrying {
		q.mu.Unlock()
		return FlushStats{}, ErrFlushInProgress
	}
	if len(q.entries) == 0 {
		q.mu.Unlock()
		return FlushStats{}, nil
	}
	q.retrying = true
	snapshot := make([]model.PendingPosterLog, len(q.entries))
	copy(snapshot, q.entries)
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.retrying.Set(1)
	}
	defer func() {
		q.mu.Lock()
		q.retrying = false
		q.mu.Unlock()
		if q.metrics != nil {
			q.metrics.retrying.Set(0)
		}
	}()

	state, err := q.probe.NetworkState(ctx)
	if err != nil || !state.Online() {
		q.logger.Debug("Skipping queue flush, offline",
			zap.Error(err),
			zap.Bool("connected", state.IsConnected),
			zap.Bool("reachable", state.IsInternetReachable))
		return FlushStats{}, nil
	}

	var stats FlushStats
	for _, entry := range snapshot {
		if entry.RetryCount >= q.cfg.MaxRetries {
			stats.Skipped++
			continue
		}
		stats.Attempted++
		if q.metrics != nil {
			q.metrics.attempts.Inc()
		}

		if err := q.retryEntry(ctx, entry); err != nil {
			stats.Failed++
			q.bumpRetry(entry.ID)
			q.logger.Warn("Pending poster log retry failed",
				zap.Error(err),
				zap.String("pending_id", entry.ID),
				zap.Int("retry_count", entry.RetryCount+1))
			continue
		}

		stats.Committed++
		q.remove(entry.ID)
		q.logger.Info("Pending poster log committed",
			zap.String("pending_id", entry.ID))
	}

	if q.metrics != nil {
		q.metrics.pending.Set(float64(q.PendingCount()))
	}
	return stats, nil
}

// retryEntry re-uploads the cached photo and commits with the resulting URL
func (q *Queue) retryEntry(ctx context.Context, entry model.PendingPosterLog) error {
	body, err := os.Open(entry.PhotoURI)
	if err != nil {
		return fmt.Errorf("failed to open cached photo: %w", err)
	}
	defer body.Close()

	objectPath := fmt.Sprintf("%s/%s/%d.jpg",
		entry.Params.CampaignID, entry.Params.WorkerID, q.now().UnixMilli())
	photoURL, err := q.objects.Upload(ctx, upload.PhotoBucket, objectPath, "image/jpeg", body)
	if err != nil {
		return fmt.Errorf("failed to upload cached photo: %w", err)
	}

	params := entry.Params
	params.PhotoURL = photoURL
	if _, err := q.committer.RecordPosterLog(ctx, params); err != nil {
		return fmt.Errorf("failed to record poster log: %w", err)
	}
	return nil
}

func (q *Queue) bumpRetry(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries[i].RetryCount++
			if err := q.store.Put(q.entries[i]); err != nil {
				q.logger.Error("Failed to persist retry count",
					zap.Error(err),
					zap.String("pending_id", id))
			}
			return
		}
	}
}

func (q *Queue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	if err := q.store.Delete(id); err != nil {
		q.logger.Error("Failed to delete committed entry from store",
			zap.Error(err),
			zap.String("pending_id", id))
	}
}

// Run drives the background flush loop until ctx is cancelled: an immediate
// pass when an entry is enqueued, plus a recurring pass on the flush
// interval. After a pass with failures the next automatic pass is delayed by
// capped exponential backoff; a clean pass resets the cadence.
func (q *Queue) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = q.cfg.FlushInterval
	bo.MaxInterval = 10 * q.cfg.FlushInterval
	bo.MaxElapsedTime = 0
	bo.Reset()

	timer := time.NewTimer(q.cfg.FlushInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.kick:
		case <-timer.C:
		}

		stats, err := q.Flush(ctx)
		if err != nil && !errors.Is(err, ErrFlushInProgress) {
			q.logger.Error("Queue flush failed", zap.Error(err))
		}

		delay := q.cfg.FlushInterval
		if stats.Failed > 0 {
			delay = bo.NextBackOff()
		} else {
			bo.Reset()
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(delay)
	}
}
