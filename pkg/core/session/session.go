// Package session implements the hanging-session compliance controller: a
// per-work-session state machine that combines live location against the
// assigned zone polygon with a periodic election-calendar check, exposing
// advisory {isInZone, isWithinTime} flags. The flags gate warnings only;
// they never block poster submission.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/plakatpatruljen/fieldops/pkg/core/election"
	"github.com/plakatpatruljen/fieldops/pkg/core/geo"
	"github.com/plakatpatruljen/fieldops/pkg/location"
)

// ComplianceMode controls how a location permission denial is handled
type ComplianceMode string

const (
	// ModeFailOpen keeps the session usable when location is unavailable:
	// isInZone stays true and only the time check runs. This is the product
	// default; a worker without GPS can still log posters.
	ModeFailOpen ComplianceMode = "fail_open"

	// ModeStrict refuses to start a session without a location stream
	ModeStrict ComplianceMode = "strict"
)

// State is the session lifecycle state
type State string

const (
	StateIdle     State = "idle"
	StateTracking State = "tracking"
	StateStopped  State = "stopped"
)

// ErrSessionStopped is returned when starting a session that was already
// stopped; Stopped is terminal.
var ErrSessionStopped = errors.New("session already stopped")

// DefaultTimeCheckInterval is how often the hanging-window check reruns
// while tracking.
const DefaultTimeCheckInterval = 60 * time.Second

// Config describes one hanging session
type Config struct {
	// Zone is the assigned zone geometry. Nil means the task has no zone
	// polygon and every location counts as in-zone.
	Zone *geo.Polygon

	ElectionType election.Type
	ElectionDate time.Time

	// Mode defaults to ModeFailOpen
	Mode ComplianceMode

	// TimeCheckInterval defaults to DefaultTimeCheckInterval
	TimeCheckInterval time.Duration

	// Now defaults to election.CurrentDanishTime
	Now func() time.Time
}

// Snapshot is the continuously exposed session state
type Snapshot struct {
	IsInZone        bool
	IsWithinTime    bool
	CurrentLocation *geo.Coordinate
	State           State
}

// Session tracks one worker's active hanging session
type Session struct {
	cfg     Config
	watcher location.Watcher
	logger  *zap.Logger

	mu           sync.Mutex
	state        State
	isInZone     bool
	isWithinTime bool
	current      *geo.Coordinate
	stopWatch    func()
	cancelChecks context.CancelFunc
}

// New creates a session in the Idle state. Both compliance flags start true;
// they are advisory and only flip once a check observes a violation.
func New(cfg Config, watcher location.Watcher, logger *zap.Logger) *Session {
	if cfg.Mode == "" {
		cfg.Mode = ModeFailOpen
	}
	if cfg.TimeCheckInterval <= 0 {
		cfg.TimeCheckInterval = DefaultTimeCheckInterval
	}
	if cfg.Now == nil {
		cfg.Now = election.CurrentDanishTime
	}
	return &Session{
		cfg:          cfg,
		watcher:      watcher,
		logger:       logger,
		state:        StateIdle,
		isInZone:     true,
		isWithinTime: true,
	}
}

// Start requests location permission, subscribes to the live location stream
// and begins the periodic hanging-window check. Calling Start on a session
// that is already tracking is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateTracking:
		s.mu.Unlock()
		return nil
	case StateStopped:
		s.mu.Unlock()
		return ErrSessionStopped
	}
	s.mu.Unlock()

	granted, err := s.watcher.RequestPermission(ctx)
	if err != nil || !granted {
		if s.cfg.Mode == ModeStrict {
			if err != nil {
				return fmt.Errorf("failed to request location permission: %w", err)
			}
			return location.ErrPermissionDenied
		}
		// Fail-open: session runs degraded with only the time check active
		s.logger.Warn("Location permission unavailable, zone check disabled",
			zap.Error(err),
			zap.String("mode", string(s.cfg.Mode)))
		return s.beginTracking(nil)
	}

	stop, err := s.watcher.Watch(ctx, s.onLocation)
	if err != nil {
		if s.cfg.Mode == ModeStrict {
			return fmt.Errorf("failed to subscribe to location updates: %w", err)
		}
		s.logger.Warn("Location subscription failed, zone check disabled", zap.Error(err))
		stop = nil
	}

	return s.beginTracking(stop)
}

func (s *Session) beginTracking(stopWatch func()) error {
	checkCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.state == StateStopped {
		// Stop landed while Start was suspended in the permission prompt or
		// the watch subscription. The session stays stopped; tear down the
		// fresh subscription instead of resurrecting it.
		s.mu.Unlock()
		cancel()
		if stopWatch != nil {
			stopWatch()
		}
		return ErrSessionStopped
	}
	s.stopWatch = stopWatch
	s.cancelChecks = cancel
	s.state = StateTracking
	s.mu.Unlock()

	// Immediate check so a snapshot taken right after Start is accurate
	s.checkTime()

	go func() {
		ticker := time.NewTicker(s.cfg.TimeCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-checkCtx.Done():
				return
			case <-ticker.C:
				s.checkTime()
			}
		}
	}()

	s.logger.Info("Hanging session started",
		zap.String("election_type", string(s.cfg.ElectionType)),
		zap.Bool("has_zone", s.cfg.Zone != nil))
	return nil
}

func (s *Session) onLocation(c geo.Coordinate) {
	inZone := true
	if s.cfg.Zone != nil {
		inZone = geo.PointInZone(c, *s.cfg.Zone)
	}

	s.mu.Lock()
	s.current = &c
	s.isInZone = inZone
	s.mu.Unlock()
}

func (s *Session) checkTime() {
	within := election.IsWithinHangingPeriod(s.cfg.ElectionType, s.cfg.ElectionDate, s.cfg.Now())

	s.mu.Lock()
	s.isWithinTime = within
	s.mu.Unlock()
}

// Stop cancels the location subscription and the periodic time check.
// Idempotent; safe to call concurrently and repeatedly. In-flight uploads are
// unaffected: they run to completion so photographed posters are never lost.
func (s *Session) Stop() {
	s.mu.Lock()
	stopWatch := s.stopWatch
	cancel := s.cancelChecks
	s.stopWatch = nil
	s.cancelChecks = nil
	alreadyStopped := s.state == StateStopped
	s.state = StateStopped
	s.mu.Unlock()

	if stopWatch != nil {
		stopWatch()
	}
	if cancel != nil {
		cancel()
	}
	if !alreadyStopped {
		s.logger.Info("Hanging session stopped")
	}
}

// Snapshot returns the current compliance flags and location. The flags are
// a point-in-time view: an upload started now carries these values and is not
// re-validated mid-flight.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		IsInZone:     s.isInZone,
		IsWithinTime: s.isWithinTime,
		State:        s.state,
	}
	if s.current != nil {
		c := *s.current
		snap.CurrentLocation = &c
	}
	return snap
}
