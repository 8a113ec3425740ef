package waypoint

import (
	"errors"
	"testing"
)

func TestSimpleCurrentAndAdvance(t *testing.T) {
	s := NewSimple([]Point{{X: 0, Y: 0}, {X: 10, Y: 0}})
	p, err := s.Current(0, 0)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if p.X != 0 || p.Y != 0 {
		t.Errorf("Current = %v, want (0,0)", p)
	}
	s.Advance()
	p, err = s.Current(0, 0)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if p.X != 10 {
		t.Errorf("Current after advance = %v, want x=10", p)
	}
	s.Advance()
	if !s.Done() {
		t.Error("expected Done after consuming all waypoints")
	}
	if _, err := s.Current(0, 0); !errors.Is(err, ErrNoWaypointsLeft) {
		t.Errorf("expected ErrNoWaypointsLeft, got %v", err)
	}
}

func TestSimpleReachedDirectHit(t *testing.T) {
	s := NewSimple([]Point{{X: 0, Y: 0}})
	if s.Reached(1.5, 0) {
		t.Error("1.5m should not be reached (threshold 1.0)")
	}
	if !s.Reached(0.9, 0) {
		t.Error("0.9m should be reached")
	}
}

func TestSimpleReachedOvershoot(t *testing.T) {
	s := NewSimple([]Point{{X: 0, Y: 0}})
	// Monotonically decreasing into < 3m, then an increase counts as reached.
	if s.Reached(5, 0) {
		t.Error("5m should not be reached")
	}
	if s.Reached(2.5, 0) {
		t.Error("2.5m decreasing should not yet be reached")
	}
	if !s.Reached(2.8, 0) {
		t.Error("distance increasing after dipping below 3m should count as reached")
	}
}

func TestSimpleResetRestoresSequence(t *testing.T) {
	s := NewSimple([]Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	s.Advance()
	s.Advance()
	if !s.Done() {
		t.Fatal("expected done")
	}
	s.Reset()
	if s.Done() {
		t.Error("expected not done after reset")
	}
	p, err := s.Current(0, 0)
	if err != nil || p.X != 0 {
		t.Errorf("Current after reset = %v, err %v, want (0,0)", p, err)
	}
}

func TestSimpleRawReturnsZeroWhenDone(t *testing.T) {
	s := NewSimple([]Point{{X: 1, Y: 1}})
	s.Advance()
	if got := s.Raw(); got.X != 0 || got.Y != 0 {
		t.Errorf("Raw() when done = %v, want (0,0)", got)
	}
}
