package waypoint

import "github.com/sparkfun-avc/control/internal/geo"

// simpleReachedDistanceM is the direct-hit threshold for the Simple and
// Extension strategies.
const simpleReachedDistanceM = 1.0

// overshootDistanceM bounds the Simple/Extension overshoot detector: once
// the car has been within this distance of the target, a subsequent
// increase in distance also counts as reached.
const overshootDistanceM = 3.0

// Simple tracks waypoints in order, reached by direct approach or by
// detecting overshoot: once within overshootDistanceM, a later increase in
// distance counts as having passed the target.
type Simple struct {
	waypoints
	initial []Point

	lastDistance float64
	haveLast     bool
}

// NewSimple builds a Simple generator over points, in order.
func NewSimple(points []Point) *Simple {
	return &Simple{
		waypoints: waypoints{points: append([]Point(nil), points...)},
		initial:   append([]Point(nil), points...),
	}
}

func (s *Simple) Current(xM, yM float64) (Point, error) {
	if s.done() {
		return Point{}, ErrNoWaypointsLeft
	}
	return s.points[s.index], nil
}

func (s *Simple) Raw() Point { return s.raw() }

func (s *Simple) Reached(xM, yM float64) bool {
	if s.done() {
		return false
	}
	target := s.points[s.index]
	d := geo.Distance(xM, yM, target.X, target.Y)

	reached := d < simpleReachedDistanceM
	if !reached && s.haveLast && s.lastDistance < overshootDistanceM && d > s.lastDistance {
		reached = true
	}

	s.lastDistance = d
	s.haveLast = true
	return reached
}

func (s *Simple) Advance() {
	s.advance()
	s.haveLast = false
}

func (s *Simple) Done() bool { return s.done() }

func (s *Simple) Reset() {
	s.points = append([]Point(nil), s.initial...)
	s.reset()
	s.haveLast = false
}

var _ Generator = (*Simple)(nil)
