package waypoint

import "testing"

func TestExtensionFirstAndLastAreUnextended(t *testing.T) {
	e := NewExtension([]Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 0, Y: 20}})
	p, err := e.Current(0, 0)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if p.X != 0 || p.Y != 0 {
		t.Errorf("first waypoint's extension = %v, want unextended (0,0)", p)
	}

	e.Advance()
	e.Advance()
	p, err = e.Current(0, 0)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if p.X != 0 || p.Y != 20 {
		t.Errorf("last waypoint's extension = %v, want unextended (0,20)", p)
	}
}

func TestExtensionMiddleWaypointExtendsPastTarget(t *testing.T) {
	e := NewExtension([]Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 0, Y: 20}})
	e.Advance()
	p, err := e.Current(0, 0)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	// Segment (0,0)->(0,10) extended 5m past (0,10) along +y.
	if p.X != 0 || p.Y != 15 {
		t.Errorf("extended target = %v, want (0,15)", p)
	}
}

func TestExtensionReachedWithinExtensionRadius(t *testing.T) {
	e := NewExtension([]Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 0, Y: 20}})
	e.Advance()
	// Car far from the real waypoint (0,10) but within 5m of the extended
	// target (0,15).
	if !e.Reached(0, 12) {
		t.Error("expected reached via extension radius")
	}
}
