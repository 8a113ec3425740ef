package estimator

import "testing"

func TestHeadingFilterPredictAdvancesAndWraps(t *testing.T) {
	f := NewHeadingFilter(170, 20)
	f.Predict(1.0)
	got := f.EstimatedHeading()
	approxEqual(t, got, -170, 1e-9, "heading")
}

func TestHeadingFilterUpdateHeadingPullsTowardMeasurement(t *testing.T) {
	f := NewHeadingFilter(0, 0)
	if err := f.UpdateHeading(90); err != nil {
		t.Fatalf("UpdateHeading: %v", err)
	}
	if f.EstimatedHeading() <= 0 {
		t.Errorf("expected heading pulled toward 90, got %v", f.EstimatedHeading())
	}
}

func TestHeadingFilterUpdateHeadingRateLeavesHeadingAlone(t *testing.T) {
	f := NewHeadingFilter(45, 0)
	if err := f.UpdateHeadingRate(10); err != nil {
		t.Fatalf("UpdateHeadingRate: %v", err)
	}
	if f.EstimatedHeading() != 45 {
		t.Errorf("heading changed by rate-only update: got %v", f.EstimatedHeading())
	}
	if f.EstimatedHeadingRate() <= 0 {
		t.Errorf("expected rate pulled toward 10, got %v", f.EstimatedHeadingRate())
	}
}

func TestHeadingFilterUpdateWrapsAcrossBoundary(t *testing.T) {
	f := NewHeadingFilter(179, 0)
	if err := f.UpdateHeading(-179); err != nil {
		t.Fatalf("UpdateHeading: %v", err)
	}
	h := f.EstimatedHeading()
	if h > -170 && h < 170 {
		t.Errorf("heading jumped across the wrap boundary: got %v", h)
	}
}
