// Package waypoint tracks a sequence of planar targets and decides, per
// strategy, when the vehicle has reached one and what to steer toward.
package waypoint

import (
	"errors"

	"github.com/sparkfun-avc/control/internal/geo"
)

// ErrNoWaypointsLeft is raised by Current once every waypoint has been
// consumed. Raw never raises it.
var ErrNoWaypointsLeft = errors.New("waypoint: no waypoints left")

// Point is a target in the planar frame.
type Point = geo.Point

// Generator is the common capability every waypoint-tracking strategy
// implements. The command loop only calls through this interface and never
// inspects distances directly; reach semantics belong to the generator.
type Generator interface {
	// Current returns the point the car should steer toward right now.
	Current(xM, yM float64) (Point, error)
	// Raw returns the underlying target for monitoring, or the zero point
	// once exhausted.
	Raw() Point
	// Reached reports whether the current target has been reached. It is a
	// pure observer and does not advance the sequence.
	Reached(xM, yM float64) bool
	// Advance moves to the next target.
	Advance()
	// Done reports whether every target has been consumed.
	Done() bool
	// Reset restores the initial sequence and index 0.
	Reset()
}

// waypoints is the shared bookkeeping every strategy embeds: the target
// list and current index.
type waypoints struct {
	points []Point
	index  int
}

func (w *waypoints) done() bool {
	return w.index >= len(w.points)
}

func (w *waypoints) raw() Point {
	if w.done() {
		return Point{}
	}
	return w.points[w.index]
}

func (w *waypoints) advance() {
	w.index++
}

func (w *waypoints) reset() {
	w.index = 0
}
