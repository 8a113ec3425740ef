package estimator

import "testing"

func approxEqual(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if got < want-tol || got > want+tol {
		t.Errorf("%s = %v, want within %v of %v", what, got, tol, want)
	}
}

func TestPositionFilterPredictMovesAlongHeading(t *testing.T) {
	f := NewPositionFilter(0, 0, 0, 2) // heading 0 (north), speed 2 m/s
	f.Predict(1.0, 0)

	x, y := f.EstimatedLocation()
	// state transition scales by speed via a later update, but the raw
	// A-matrix step moves by heading-rotated (0, dt); speed fusion happens
	// through updates, so after a single predict with no correction the
	// position only reflects the unit step times speed remaining constant
	// across updates.
	approxEqual(t, x, 0, 1e-9, "x")
	approxEqual(t, y, 2, 1e-9, "y")
}

func TestPositionFilterPredictAdvancesHeadingAndWraps(t *testing.T) {
	f := NewPositionFilter(0, 0, 170, 0)
	f.Predict(1.0, 20) // +20 deg should wrap past 180
	got := f.EstimatedHeading()
	approxEqual(t, got, -170, 1e-9, "heading")
}

func TestPositionFilterUpdateGPSFullPullsTowardMeasurement(t *testing.T) {
	f := NewPositionFilter(0, 0, 0, 0)
	heading := 90.0
	speed := 3.0
	if err := f.UpdateGPSFull(10, 10, &heading, &speed, 1, 1, 10); err != nil {
		t.Fatalf("UpdateGPSFull: %v", err)
	}
	x, y := f.EstimatedLocation()
	if x <= 0 || y <= 0 {
		t.Errorf("expected position pulled toward (10,10), got (%v,%v)", x, y)
	}
	if f.EstimatedHeading() <= 0 {
		t.Errorf("expected heading pulled toward 90, got %v", f.EstimatedHeading())
	}
}

func TestPositionFilterUpdateGPSPartialIgnoresMissingFields(t *testing.T) {
	f := NewPositionFilter(5, 5, 45, 1)
	beforeHeading := f.EstimatedHeading()
	beforeSpeed := f.EstimatedSpeed()
	if err := f.UpdateGPSFull(6, 6, nil, nil, 1, 1, 10); err != nil {
		t.Fatalf("UpdateGPSFull: %v", err)
	}
	if f.EstimatedHeading() != beforeHeading {
		t.Errorf("heading changed with nil headingD: got %v, want unchanged %v", f.EstimatedHeading(), beforeHeading)
	}
	if f.EstimatedSpeed() != beforeSpeed {
		t.Errorf("speed changed with nil speedMPS: got %v, want unchanged %v", f.EstimatedSpeed(), beforeSpeed)
	}
}

func TestPositionFilterUpdateCompassNarrowsHeading(t *testing.T) {
	f := NewPositionFilter(0, 0, 0, 0)
	if err := f.UpdateCompass(90, 0.9); err != nil {
		t.Fatalf("UpdateCompass: %v", err)
	}
	if f.EstimatedHeading() <= 0 {
		t.Errorf("expected heading pulled toward 90, got %v", f.EstimatedHeading())
	}
}

func TestPositionFilterUpdateCompassHandlesWrapBoundary(t *testing.T) {
	f := NewPositionFilter(0, 0, 179, 0)
	if err := f.UpdateCompass(-179, 0.9); err != nil {
		t.Fatalf("UpdateCompass: %v", err)
	}
	// The true residual across the wrap boundary is small (2 degrees);
	// without wrapping the filter would swing toward 0 instead of staying
	// near +-180.
	h := f.EstimatedHeading()
	if h > -170 && h < 170 {
		t.Errorf("heading jumped across the wrap boundary: got %v", h)
	}
}

func TestPositionFilterUpdateSpeedFromThrottle(t *testing.T) {
	f := NewPositionFilter(0, 0, 0, 0)
	if err := f.UpdateSpeedFromThrottle(5); err != nil {
		t.Fatalf("UpdateSpeedFromThrottle: %v", err)
	}
	if f.EstimatedSpeed() <= 0 {
		t.Errorf("expected speed pulled toward 5, got %v", f.EstimatedSpeed())
	}
	// Heading must be untouched by a speed-only update.
	if f.EstimatedHeading() != 0 {
		t.Errorf("heading changed by speed-only update: got %v", f.EstimatedHeading())
	}
}
