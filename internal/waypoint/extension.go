package waypoint

import (
	"math"

	"github.com/sparkfun-avc/control/internal/geo"
)

// extensionBeyondM is how far past a waypoint the virtual steering target
// extends, to damp oscillation around the real target.
const extensionBeyondM = 5.0

// Extension steers toward a virtual point extended extensionBeyondM past
// the real waypoint, along the segment from the previous waypoint, to
// avoid the oscillation a direct approach produces near the target. The
// first and last waypoints have no segment to extend along, so the
// extension is the waypoint itself.
type Extension struct {
	waypoints
	initial []Point

	lastDistance float64
	haveLast     bool
}

// NewExtension builds an Extension generator over points, in order.
func NewExtension(points []Point) *Extension {
	return &Extension{
		waypoints: waypoints{points: append([]Point(nil), points...)},
		initial:   append([]Point(nil), points...),
	}
}

func (e *Extension) extendedTarget() Point {
	i := e.index
	cur := e.points[i]
	if i <= 0 || i >= len(e.points)-1 {
		return cur
	}
	prev := e.points[i-1]
	dx := cur.X - prev.X
	dy := cur.Y - prev.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return cur
	}
	scale := extensionBeyondM / length
	return Point{X: cur.X + dx*scale, Y: cur.Y + dy*scale}
}

func (e *Extension) Current(xM, yM float64) (Point, error) {
	if e.done() {
		return Point{}, ErrNoWaypointsLeft
	}
	return e.extendedTarget(), nil
}

func (e *Extension) Raw() Point { return e.raw() }

func (e *Extension) Reached(xM, yM float64) bool {
	if e.done() {
		return false
	}
	target := e.points[e.index]
	d := geo.Distance(xM, yM, target.X, target.Y)

	reached := d < simpleReachedDistanceM
	if !reached && e.haveLast && e.lastDistance < overshootDistanceM && d > e.lastDistance {
		reached = true
	}

	if !reached {
		ext := e.extendedTarget()
		if geo.Distance(xM, yM, ext.X, ext.Y) < extensionBeyondM {
			reached = true
		}
	}

	e.lastDistance = d
	e.haveLast = true
	return reached
}

func (e *Extension) Advance() {
	e.advance()
	e.haveLast = false
}

func (e *Extension) Done() bool { return e.done() }

func (e *Extension) Reset() {
	e.points = append([]Point(nil), e.initial...)
	e.reset()
	e.haveLast = false
}

var _ Generator = (*Extension)(nil)
