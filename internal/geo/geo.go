// Package geo converts between GPS latitude/longitude and a local planar
// meter frame centered on a configured reference point, and provides the
// heading/angle helpers the rest of the vehicle stack builds on.
package geo

import "math"

// EarthRadiusM is the sphere radius used for longitude scaling.
const EarthRadiusM = 6371000.0

// metersPerDegreeLatitude is constant across the globe for the spherical
// model used here.
const metersPerDegreeLatitude = 2 * math.Pi * EarthRadiusM / 360

// Origin is the reference point a planar frame is centered on.
type Origin struct {
	LatD  float64
	LongD float64

	// mPerDLong is cached for this origin's latitude.
	mPerDLong float64
}

// NewOrigin builds an Origin and caches its meters-per-degree-longitude.
func NewOrigin(latD, longD float64) Origin {
	return Origin{
		LatD:      latD,
		LongD:     longD,
		mPerDLong: LatitudeToMPerDLongitude(latD),
	}
}

// LatitudeToMPerDLongitude returns meters per degree of longitude at the
// given latitude: cos(lat) * 2*pi*R / 360.
func LatitudeToMPerDLongitude(latD float64) float64 {
	latR := latD * math.Pi / 180
	return math.Cos(latR) * 2 * math.Pi * EarthRadiusM / 360
}

// LongitudeToMOffset converts a longitude in degrees to a planar x offset
// (meters) relative to the origin.
func (o Origin) LongitudeToMOffset(longD float64) float64 {
	return (longD - o.LongD) * o.mPerDLong
}

// LatitudeToMOffset converts a latitude in degrees to a planar y offset
// (meters) relative to the origin.
func (o Origin) LatitudeToMOffset(latD float64) float64 {
	return (latD - o.LatD) * metersPerDegreeLatitude
}

// MOffsetToLongitude is the inverse of LongitudeToMOffset.
func (o Origin) MOffsetToLongitude(xM float64) float64 {
	return o.LongD + xM/o.mPerDLong
}

// MOffsetToLatitude is the inverse of LatitudeToMOffset.
func (o Origin) MOffsetToLatitude(yM float64) float64 {
	return o.LatD + yM/metersPerDegreeLatitude
}

// WrapDegrees canonicalizes a heading in degrees to (-180, 180].
func WrapDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d <= -180 {
		d += 360
	}
	if d > 180 {
		d -= 360
	}
	return d
}

// DifferenceD returns the minimum-arc absolute distance between two
// headings, in [0, 180].
func DifferenceD(a, b float64) float64 {
	return math.Abs(WrapDegrees(a - b))
}

// RelativeDegrees returns the bearing in degrees from point (x1, y1) to
// point (x2, y2) in the planar frame, where north is +y and heading
// increases clockwise.
func RelativeDegrees(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return WrapDegrees(math.Atan2(dx, dy) * 180 / math.Pi)
}

// Point is a planar (x, y) coordinate in meters.
type Point struct {
	X float64
	Y float64
}

// RotateClockwiseDegrees rotates p clockwise by angleD degrees.
func RotateClockwiseDegrees(p Point, angleD float64) Point {
	return RotateClockwiseRadians(p, angleD*math.Pi/180)
}

// RotateClockwiseRadians rotates p clockwise by angleR radians.
func RotateClockwiseRadians(p Point, angleR float64) Point {
	sinA := math.Sin(angleR)
	cosA := math.Cos(angleR)
	return Point{
		X: p.X*cosA + p.Y*sinA,
		Y: -p.X*sinA + p.Y*cosA,
	}
}

// Distance returns the Euclidean distance between two planar points.
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Hypot(dx, dy)
}
