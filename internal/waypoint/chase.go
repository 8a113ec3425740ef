package waypoint

import (
	"math"

	"github.com/sparkfun-avc/control/internal/geo"
)

// DefaultChaseDistanceM is the pure-pursuit lookahead distance used when
// none is configured.
const DefaultChaseDistanceM = 15.0

// chaseReachedDistanceM is the Chase strategy's direct-hit threshold.
const chaseReachedDistanceM = 1.5

// Chase implements pure-pursuit steering: it aims at the point where a
// circle of radius ChaseDistanceM centered on the car intersects the
// segment leading into the current waypoint, falling back to the waypoint
// itself once the car is already within range.
type Chase struct {
	waypoints
	initial []Point

	ChaseDistanceM float64
}

// NewChase builds a Chase generator with the given chase distance.
func NewChase(points []Point, chaseDistanceM float64) *Chase {
	return &Chase{
		waypoints:      waypoints{points: append([]Point(nil), points...)},
		initial:        append([]Point(nil), points...),
		ChaseDistanceM: chaseDistanceM,
	}
}

func (c *Chase) Current(xM, yM float64) (Point, error) {
	if c.done() {
		return Point{}, ErrNoWaypointsLeft
	}
	i := c.index
	target := c.points[i]
	car := Point{X: xM, Y: yM}

	if geo.Distance(xM, yM, target.X, target.Y) <= c.ChaseDistanceM {
		return target, nil
	}
	if i == 0 {
		return target, nil
	}
	prev := c.points[i-1]

	if pts := circleLineIntersections(prev, target, car, c.ChaseDistanceM); len(pts) > 0 {
		return closestToTarget(pts, target), nil
	}

	tangent := perpendicularDistance(prev, target, car)
	if pts := circleLineIntersections(prev, target, car, tangent+0.1); len(pts) > 0 {
		return closestToTarget(pts, target), nil
	}

	return target, nil
}

func (c *Chase) Raw() Point { return c.raw() }

func (c *Chase) Reached(xM, yM float64) bool {
	if c.done() {
		return false
	}
	target := c.points[c.index]
	return geo.Distance(xM, yM, target.X, target.Y) < chaseReachedDistanceM
}

func (c *Chase) Advance() { c.advance() }

func (c *Chase) Done() bool { return c.done() }

func (c *Chase) Reset() {
	c.points = append([]Point(nil), c.initial...)
	c.reset()
}

var _ Generator = (*Chase)(nil)

// circleLineIntersections finds where the line through p1 and p2 crosses a
// circle of radius r centered at center. Returns zero, one (tangent), or
// two points.
func circleLineIntersections(p1, p2, center Point, r float64) []Point {
	x1, y1 := p1.X-center.X, p1.Y-center.Y
	x2, y2 := p2.X-center.X, p2.Y-center.Y
	dx, dy := x2-x1, y2-y1
	dr2 := dx*dx + dy*dy
	if dr2 == 0 {
		return nil
	}

	det := x1*y2 - x2*y1
	disc := r*r*dr2 - det*det
	if disc < 0 {
		return nil
	}

	sgnDy := 1.0
	if dy < 0 {
		sgnDy = -1.0
	}

	if disc == 0 {
		x := det * dy / dr2
		y := -det * dx / dr2
		return []Point{{X: x + center.X, Y: y + center.Y}}
	}

	sqrtDisc := math.Sqrt(disc)
	xa := (det*dy + sgnDy*dx*sqrtDisc) / dr2
	xb := (det*dy - sgnDy*dx*sqrtDisc) / dr2
	ya := (-det*dx + math.Abs(dy)*sqrtDisc) / dr2
	yb := (-det*dx - math.Abs(dy)*sqrtDisc) / dr2
	return []Point{
		{X: xa + center.X, Y: ya + center.Y},
		{X: xb + center.X, Y: yb + center.Y},
	}
}

// perpendicularDistance returns the distance from center to the infinite
// line through p1 and p2.
func perpendicularDistance(p1, p2, center Point) float64 {
	x1, y1 := p1.X-center.X, p1.Y-center.Y
	x2, y2 := p2.X-center.X, p2.Y-center.Y
	dx, dy := x2-x1, y2-y1
	dr2 := dx*dx + dy*dy
	if dr2 == 0 {
		return math.Hypot(x1, y1)
	}
	det := x1*y2 - x2*y1
	return math.Abs(det) / math.Sqrt(dr2)
}

// closestToTarget returns the point in pts nearest to target.
func closestToTarget(pts []Point, target Point) Point {
	best := pts[0]
	bestD := geo.Distance(best.X, best.Y, target.X, target.Y)
	for _, p := range pts[1:] {
		d := geo.Distance(p.X, p.Y, target.X, target.Y)
		if d < bestD {
			bestD = d
			best = p
		}
	}
	return best
}
