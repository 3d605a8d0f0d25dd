package location

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/plakatpatruljen/fieldops/pkg/core/geo"
)

// Replay plays back a recorded GPS track from a JSONL file, one
// {"latitude":..,"longitude":..} object per line, emitting fixes at a fixed
// interval. Used to drive a hanging session from the CLI without a device.
type Replay struct {
	points   []geo.Coordinate
	interval time.Duration

	mu   sync.Mutex
	last *geo.Coordinate
	done chan struct{}
}

// NewReplay loads a JSONL track file. interval controls playback pacing.
func NewReplay(path string, interval time.Duration) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track file: %w", err)
	}
	defer f.Close()

	var points []geo.Coordinate
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var c geo.Coordinate
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			return nil, fmt.Errorf("failed to parse track point at line %d: %w", line, err)
		}
		points = append(points, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read track file: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("track file %s contains no points", path)
	}

	if interval <= 0 {
		interval = time.Second
	}
	return &Replay{points: points, interval: interval, done: make(chan struct{})}, nil
}

func (r *Replay) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

// Watch plays the track back once, then holds the final position until
// stopped.
func (r *Replay) Watch(ctx context.Context, fn func(geo.Coordinate)) (func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for _, p := range r.points {
			r.mu.Lock()
			point := p
			r.last = &point
			r.mu.Unlock()
			fn(p)

			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return cancel, nil
}

// Wait blocks until playback has emitted the full track or was stopped
func (r *Replay) Wait() {
	<-r.done
}

// Current returns the most recently replayed fix, or the first track point
// before playback has started.
func (r *Replay) Current(ctx context.Context) (geo.Coordinate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last != nil {
		return *r.last, nil
	}
	return r.points[0], nil
}
