package estimator

import (
	"gonum.org/v1/gonum/mat"

	"github.com/sparkfun-avc/control/internal/geo"
)

// HeadingFilter is a simplified 2-state (heading_d, heading_rate_d_s)
// filter for tracking heading alone, without the full position state. No
// runtime component constructs one; the pose tracker uses PositionFilter.
type HeadingFilter struct {
	x *mat.VecDense
	p *mat.Dense
}

// NewHeadingFilter starts a filter at the given heading and turn rate.
func NewHeadingFilter(headingD, rateDPerS float64) *HeadingFilter {
	return &HeadingFilter{
		x: mat.NewVecDense(2, []float64{headingD, rateDPerS}),
		p: identity(2),
	}
}

// Predict advances the filter dtS seconds.
func (f *HeadingFilter) Predict(dtS float64) {
	a := mat.NewDense(2, 2, []float64{
		1, dtS,
		0, 1,
	})

	var xNew mat.VecDense
	xNew.MulVec(a, f.x)
	f.x.CopyVec(&xNew)

	var ap mat.Dense
	ap.Mul(a, f.p)
	var apat mat.Dense
	apat.Mul(&ap, a.T())
	q := mat.NewDense(2, 2, []float64{0.01, 0, 0, 0.01})
	f.p.Add(&apat, q)

	f.x.SetVec(0, geo.WrapDegrees(f.x.AtVec(0)))
}

// UpdateHeading folds in a direct heading measurement.
func (f *HeadingFilter) UpdateHeading(headingD float64) error {
	h := mat.NewDense(1, 2, []float64{1, 0})
	r := mat.NewDense(1, 1, []float64{3})
	z := mat.NewVecDense(1, []float64{headingD})
	return kalmanUpdate(f.x, f.p, h, r, z, 0, 0)
}

// UpdateHeadingRate folds in a turn-rate measurement.
func (f *HeadingFilter) UpdateHeadingRate(rateDPerS float64) error {
	h := mat.NewDense(1, 2, []float64{0, 1})
	r := mat.NewDense(1, 1, []float64{0.3})
	z := mat.NewVecDense(1, []float64{rateDPerS})
	return kalmanUpdate(f.x, f.p, h, r, z, -1, 0)
}

// EstimatedHeading returns the filter's current heading in degrees.
func (f *HeadingFilter) EstimatedHeading() float64 {
	return f.x.AtVec(0)
}

// EstimatedHeadingRate returns the filter's current turn rate in degrees
// per second.
func (f *HeadingFilter) EstimatedHeadingRate() float64 {
	return f.x.AtVec(1)
}
