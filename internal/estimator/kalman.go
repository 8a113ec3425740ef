// Package estimator fuses noisy GPS, compass, and throttle-derived speed
// readings into a running position-and-heading estimate using two linear
// Kalman filters. It follows the teacher's explicit predict/update style
// (internal/lidar/tracking.go) but is backed by gonum.org/v1/gonum/mat
// instead of fixed float32 arrays, since the observation matrices here vary
// in shape per sensor type rather than staying fixed at 4x2.
package estimator

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/sparkfun-avc/control/internal/geo"
)

// singularNudge is added to zero diagonal entries of an otherwise-singular
// innovation covariance before a second inversion attempt.
const singularNudge = 1e-5

// identity returns an n x n identity matrix.
func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// kalmanUpdate applies the standard Kalman update x <- x + K(z - Hx), P <-
// (I - KH)P to state x (length n) and covariance p (n x n), given
// observation matrix h (m x n), measurement noise r (m x m), and
// measurement z (length m).
//
// headingMeasurementRow, if >= 0, names the row of z/h carrying a heading
// measurement; its residual is re-normalized to (-180, 180] before the
// update, since a naive subtraction across the wrap boundary (e.g. 179 -
// (-179)) would otherwise swing the filter the long way around.
// headingStateIndex, if >= 0, names the entry of x holding a heading value,
// which is re-wrapped after the update.
func kalmanUpdate(x *mat.VecDense, p *mat.Dense, h, r *mat.Dense, z *mat.VecDense, headingMeasurementRow, headingStateIndex int) error {
	n, _ := p.Dims()
	m, _ := h.Dims()

	var hp mat.Dense
	hp.Mul(h, p)

	var hpht mat.Dense
	hpht.Mul(&hp, h.T())

	var s mat.Dense
	s.Add(&hpht, r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		nudged := mat.DenseCopyOf(&s)
		for i := 0; i < m; i++ {
			if nudged.At(i, i) == 0 {
				nudged.Set(i, i, singularNudge)
			}
		}
		if err := sInv.Inverse(nudged); err != nil {
			return fmt.Errorf("estimator: singular innovation covariance: %w", err)
		}
	}

	var pht mat.Dense
	pht.Mul(p, h.T())

	var k mat.Dense
	k.Mul(&pht, &sInv)

	var hx mat.VecDense
	hx.MulVec(h, x)
	y := mat.NewVecDense(m, nil)
	y.SubVec(z, &hx)
	if headingMeasurementRow >= 0 {
		y.SetVec(headingMeasurementRow, geo.WrapDegrees(y.AtVec(headingMeasurementRow)))
	}

	var ky mat.VecDense
	ky.MulVec(&k, y)
	x.AddVec(x, &ky)

	var kh mat.Dense
	kh.Mul(&k, h)
	var imKh mat.Dense
	imKh.Sub(identity(n), &kh)
	var newP mat.Dense
	newP.Mul(&imKh, p)
	p.Copy(&newP)

	if headingStateIndex >= 0 {
		x.SetVec(headingStateIndex, geo.WrapDegrees(x.AtVec(headingStateIndex)))
	}
	return nil
}
