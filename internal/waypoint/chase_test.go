package waypoint

import (
	"math"
	"testing"
)

func approxPoint(t *testing.T, got, want Point, tol float64, what string) {
	t.Helper()
	if math.Abs(got.X-want.X) > tol || math.Abs(got.Y-want.Y) > tol {
		t.Errorf("%s = %v, want %v within %v", what, got, want, tol)
	}
}

func TestCircleLineIntersectionsHorizontalSegment(t *testing.T) {
	pts := circleLineIntersections(Point{X: -3, Y: 0}, Point{X: 300, Y: 0}, Point{X: 0, Y: 0}, 2)
	if len(pts) != 2 {
		t.Fatalf("got %d intersections, want 2", len(pts))
	}
	xs := map[float64]bool{pts[0].X: true, pts[1].X: true}
	if !xs[2] || !xs[-2] {
		t.Errorf("intersections = %v, want x in {2,-2}", pts)
	}
	for _, p := range pts {
		if math.Abs(p.Y) > 1e-9 {
			t.Errorf("intersection %v should lie on y=0", p)
		}
	}
}

func TestCircleLineIntersectionsNoSolution(t *testing.T) {
	pts := circleLineIntersections(Point{X: 10, Y: 10}, Point{X: 20, Y: 10}, Point{X: 0, Y: 0}, 1)
	if len(pts) != 0 {
		t.Errorf("expected no intersections, got %v", pts)
	}
}

func TestCircleLineIntersectionsTangent(t *testing.T) {
	// Line y=2, circle radius 2 centered at origin: tangent at (0,2).
	pts := circleLineIntersections(Point{X: -5, Y: 2}, Point{X: 5, Y: 2}, Point{X: 0, Y: 0}, 2)
	if len(pts) != 1 {
		t.Fatalf("got %d intersections, want exactly 1 (tangent)", len(pts))
	}
	approxPoint(t, pts[0], Point{X: 0, Y: 2}, 1e-9, "tangent point")
}

func TestChaseReturnsWaypointWhenWithinRange(t *testing.T) {
	c := NewChase([]Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}, {X: 0, Y: 3}}, 15)
	c.Advance()
	c.Advance() // index 2, target (0,2)
	p, err := c.Current(-1, 0.5)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if p.X != 0 || p.Y <= 0.5 {
		t.Errorf("Current = %v, want x==0 and y>0.5", p)
	}
}

func TestChaseAtWaypointReturnsWaypoint(t *testing.T) {
	c := NewChase([]Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, 15)
	c.Advance()
	p, err := c.Current(10, 0)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if p.X != 10 || p.Y != 0 {
		t.Errorf("Current at waypoint = %v, want (10,0)", p)
	}
}

func TestChaseReachedThreshold(t *testing.T) {
	c := NewChase([]Point{{X: 0, Y: 0}}, 15)
	if c.Reached(1.6, 0) {
		t.Error("1.6m should not be reached (threshold 1.5)")
	}
	if !c.Reached(1.4, 0) {
		t.Error("1.4m should be reached")
	}
}

func TestChaseFarFromLineUsesChaseDistanceIntersection(t *testing.T) {
	// Segment (0,0)->(0,100), chase distance 15, car at (0,-20): car is
	// more than 15m from the waypoint, behind the segment start.
	c := NewChase([]Point{{X: 0, Y: 0}, {X: 0, Y: 100}}, 15)
	c.Advance()
	p, err := c.Current(0, -20)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	approxPoint(t, p, Point{X: 0, Y: -5}, 1e-6, "chase target")
}
