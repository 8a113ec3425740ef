package estimator

import (
	"gonum.org/v1/gonum/mat"

	"github.com/sparkfun-avc/control/internal/geo"
)

// PositionFilter tracks state [x_m, y_m, heading_d, speed_m_s] in the
// planar frame. Process noise is the identity; heading advances outside
// the linear transition by the commanded turn rate.
type PositionFilter struct {
	x *mat.VecDense
	p *mat.Dense
}

// NewPositionFilter starts a filter at the given state with unit-diagonal
// initial covariance.
func NewPositionFilter(xM, yM, headingD, speedMPS float64) *PositionFilter {
	return &PositionFilter{
		x: mat.NewVecDense(4, []float64{xM, yM, headingD, speedMPS}),
		p: identity(4),
	}
}

// Predict advances the filter dtS seconds, given the commanded turn rate in
// degrees per second.
func (f *PositionFilter) Predict(dtS, turnRateDPerS float64) {
	headingD := f.x.AtVec(2)
	delta := geo.RotateClockwiseDegrees(geo.Point{X: 0, Y: dtS}, headingD)

	a := mat.NewDense(4, 4, []float64{
		1, 0, 0, delta.X,
		0, 1, 0, delta.Y,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})

	var xNew mat.VecDense
	xNew.MulVec(a, f.x)
	f.x.CopyVec(&xNew)

	var ap mat.Dense
	ap.Mul(a, f.p)
	var apat mat.Dense
	apat.Mul(&ap, a.T())
	f.p.Add(&apat, identity(4))

	f.x.SetVec(2, geo.WrapDegrees(f.x.AtVec(2)+turnRateDPerS*dtS))
}

// UpdateGPSFull folds in a GPS fix. headingD and speedMPS may be nil when
// the fix didn't carry a course or a speed, in which case the
// corresponding row of H is zeroed and the filter keeps its own estimate
// for that component.
func (f *PositionFilter) UpdateGPSFull(xM, yM float64, headingD, speedMPS *float64, accuracyXM, accuracyYM, maxSpeedMPS float64) error {
	h := identity(4)
	if headingD == nil {
		h.Set(2, 2, 0)
	}
	if speedMPS == nil {
		h.Set(3, 3, 0)
	}

	r := mat.NewDense(4, 4, nil)
	r.Set(0, 0, accuracyXM)
	r.Set(1, 1, accuracyYM)
	r.Set(2, 2, 5)
	r.Set(3, 3, maxSpeedMPS*0.1)

	var hd, sp float64
	if headingD != nil {
		hd = *headingD
	}
	if speedMPS != nil {
		sp = *speedMPS
	}
	z := mat.NewVecDense(4, []float64{xM, yM, hd, sp})

	return kalmanUpdate(f.x, f.p, h, r, z, 2, 2)
}

// UpdateCompass folds in a compass heading reading. confidence in [0,1]
// widens the measurement noise as it drops.
func (f *PositionFilter) UpdateCompass(headingD, confidence float64) error {
	h := mat.NewDense(1, 4, nil)
	h.Set(0, 2, 1)
	r := mat.NewDense(1, 1, []float64{45 + 45*(1-confidence)})
	z := mat.NewVecDense(1, []float64{headingD})
	return kalmanUpdate(f.x, f.p, h, r, z, 0, 2)
}

// UpdateSpeedFromThrottle folds in a speed estimate derived from the
// current throttle setting, used between GPS fixes.
func (f *PositionFilter) UpdateSpeedFromThrottle(speedMPS float64) error {
	h := mat.NewDense(1, 4, nil)
	h.Set(0, 3, 1)
	r := mat.NewDense(1, 1, []float64{2.0})
	z := mat.NewVecDense(1, []float64{speedMPS})
	return kalmanUpdate(f.x, f.p, h, r, z, -1, 2)
}

// EstimatedLocation returns the filter's current (x, y) in meters.
func (f *PositionFilter) EstimatedLocation() (float64, float64) {
	return f.x.AtVec(0), f.x.AtVec(1)
}

// EstimatedHeading returns the filter's current heading in degrees.
func (f *PositionFilter) EstimatedHeading() float64 {
	return f.x.AtVec(2)
}

// EstimatedSpeed returns the filter's current speed in meters per second.
func (f *PositionFilter) EstimatedSpeed() float64 {
	return f.x.AtVec(3)
}
