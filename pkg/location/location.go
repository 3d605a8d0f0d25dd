// Package location defines the ports the session controller and upload
// pipeline use to obtain GPS fixes, plus simple providers for tooling and
// simulation. Real devices plug in their own Watcher/Locator.
package location

import (
	"context"
	"errors"

	"github.com/plakatpatruljen/fieldops/pkg/core/geo"
)

// ErrPermissionDenied is returned when the platform refuses access to
// location services.
var ErrPermissionDenied = errors.New("location permission denied")

// Watcher provides a continuous stream of location updates
type Watcher interface {
	// RequestPermission asks for live-location access. Returns false without
	// error when the user declines.
	RequestPermission(ctx context.Context) (bool, error)

	// Watch subscribes to continuous location updates, invoking fn for each
	// fix. The returned stop function cancels the subscription and is safe to
	// call more than once.
	Watch(ctx context.Context, fn func(geo.Coordinate)) (stop func(), err error)
}

// Locator provides a one-shot location fix
type Locator interface {
	Current(ctx context.Context) (geo.Coordinate, error)
}

// Static is a fixed-position provider. Useful for CLI runs and tests where
// no live GPS exists.
type Static struct {
	Coord geo.Coordinate
}

func (s *Static) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

func (s *Static) Watch(ctx context.Context, fn func(geo.Coordinate)) (func(), error) {
	// A fixed position never moves; emit the single fix up front
	fn(s.Coord)
	return func() {}, nil
}

func (s *Static) Current(ctx context.Context) (geo.Coordinate, error) {
	return s.Coord, nil
}
