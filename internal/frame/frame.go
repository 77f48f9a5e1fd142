// Package frame implements the body-fixed reference frame used to
// dead-reckon a flight path: a homogeneous transform from earth-centred
// coordinates to the aircraft body on a spherical earth.
package frame

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/flightpath/internal/geom"
	"github.com/banshee-data/flightpath/internal/monitoring"
	"github.com/banshee-data/flightpath/internal/units"
)

// EarthRadius is the radius of the reference sphere in metres.
const EarthRadius = 6_366_707.0

const (
	orthoMaxError = 1e-15
	orthoMaxIter  = 10
	oneThird      = 1.0 / 3.0
)

// ReferenceFrame is an earth-to-body transform. Columns 0..2 hold the body
// x (forward), y (right) and z (down) axes in earth-centred coordinates and
// column 3 holds the origin.
type ReferenceFrame struct {
	frame geom.Mat4
}

// New returns a frame at longitude 0, latitude 0 and 300 m altitude, aligned
// with the local north-east-down axes.
func New() *ReferenceFrame {
	return NewAt(Position{Altitude: 300})
}

// NewAt returns a north-east-down frame at p.
func NewAt(p Position) *ReferenceFrame {
	rf := &ReferenceFrame{}
	rf.SetPosition(p)
	return rf
}

// FromMatrix wraps an existing transform.
func FromMatrix(m geom.Mat4) *ReferenceFrame {
	return &ReferenceFrame{frame: m}
}

// Matrix returns the current transform.
func (rf *ReferenceFrame) Matrix() geom.Mat4 {
	return rf.frame
}

// SetPosition resets the frame to the local north-east-down axes at p,
// discarding any attitude.
func (rf *ReferenceFrame) SetPosition(p Position) {
	rf.frame = earthToGeodetic(p)
}

// SetAttitude rotates the frame by heading, pitch and roll, in that order.
func (rf *ReferenceFrame) SetAttitude(a Attitude) {
	rf.RotateZ(a.Heading)
	rf.RotateY(a.Pitch)
	rf.RotateX(a.Roll)
}

// Translate moves the origin by t, given in body coordinates.
func (rf *ReferenceFrame) Translate(t geom.Vec3) {
	rf.Dot(geom.MustMat4(
		1, 0, 0, t.X,
		0, 1, 0, t.Y,
		0, 0, 1, t.Z,
		0, 0, 0, 1,
	))
}

// RotateX rotates the frame about its own x axis (roll).
func (rf *ReferenceFrame) RotateX(angle float64) {
	s, c := math.Sincos(angle)
	rf.Dot(geom.MustMat4(
		1, 0, 0, 0,
		0, c, -s, 0,
		0, s, c, 0,
		0, 0, 0, 1,
	))
}

// RotateY rotates the frame about its own y axis (pitch).
func (rf *ReferenceFrame) RotateY(angle float64) {
	s, c := math.Sincos(angle)
	rf.Dot(geom.MustMat4(
		c, 0, s, 0,
		0, 1, 0, 0,
		-s, 0, c, 0,
		0, 0, 0, 1,
	))
}

// RotateZ rotates the frame about its own z axis (heading).
func (rf *ReferenceFrame) RotateZ(angle float64) {
	s, c := math.Sincos(angle)
	rf.Dot(geom.MustMat4(
		c, -s, 0, 0,
		s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	))
}

// Dot right-multiplies the frame by m.
func (rf *ReferenceFrame) Dot(m geom.Mat4) {
	rf.frame = rf.frame.Mul(m)
}

// Origin returns the frame origin in earth-centred coordinates.
func (rf *ReferenceFrame) Origin() geom.Vec3 {
	return rf.frame.Column(3)
}

// Position converts the frame origin to longitude, latitude and altitude.
func (rf *ReferenceFrame) Position() Position {
	return positionOf(rf.Origin())
}

// Attitude extracts heading, pitch and roll relative to the local
// north-east-down axes. With positiveHeading the heading is wrapped to
// [0, 2π), otherwise it lies in (-π, π].
func (rf *ReferenceFrame) Attitude(positiveHeading bool) Attitude {
	g2b := geodeticToEarth(rf.Position()).Mul(rf.frame)

	i11 := g2b.At(0, 0)
	i21 := g2b.At(1, 0)
	i31 := g2b.At(2, 0)
	i32 := g2b.At(2, 1)
	i33 := g2b.At(2, 2)

	heading := math.Atan2(i21, i11)
	if positiveHeading {
		heading = math.Mod(units.TwoPi+heading, units.TwoPi)
	}
	pitch := math.Asin(clamp(-i31, -1, 1))
	roll := math.Atan2(i32, i33)

	return Attitude{Heading: heading, Pitch: pitch, Roll: roll}
}

// LogPosition logs the current position at INFO.
func (rf *ReferenceFrame) LogPosition() {
	monitoring.Info("%s", rf.Position())
}

// LogAttitude logs the current attitude at INFO.
func (rf *ReferenceFrame) LogAttitude() {
	monitoring.Info("%s", rf.Attitude(true))
}

// Orthonormalize removes numerical drift from the rotation part. Each
// iteration splits the pairwise dot products evenly between the axes and then
// applies a first-order length correction; it stops once the RMS
// orthogonality error is below 1e-15 or after 10 iterations.
func (rf *ReferenceFrame) Orthonormalize() {
	ci := rf.frame.Column(0)
	cj := rf.frame.Column(1)
	ck := rf.frame.Column(2)

	dij := ci.Dot(cj)
	djk := cj.Dot(ck)
	dki := ck.Dot(ci)
	errSq := oneThird * (dij*dij + djk*djk + dki*dki)

	for iter := 0; iter < orthoMaxIter; iter++ {
		if errSq < orthoMaxError*orthoMaxError {
			break
		}

		// i,j pair
		dij = ci.Dot(cj)
		ciHat := ci.Sub(geom.Scale(0.5*dij, cj))
		cjHat := cj.Sub(geom.Scale(0.5*dij, ci))

		// j,k pair
		djk = cjHat.Dot(ck)
		cjHH := cjHat.Sub(geom.Scale(0.5*djk, ck))
		ckHat := ck.Sub(geom.Scale(0.5*djk, cjHat))

		// k,i pair
		dki = ckHat.Dot(ciHat)
		ckHH := ckHat.Sub(geom.Scale(0.5*dki, ciHat))
		ciHH := ciHat.Sub(geom.Scale(0.5*dki, ckHat))

		dij = ciHH.Dot(cjHH)
		djk = cjHH.Dot(ckHH)
		dki = ckHH.Dot(ciHH)
		errSq = oneThird * (dij*dij + djk*djk + dki*dki)

		ci = ciHH.Scale(1 + 0.5*(1-ciHH.Dot(ciHH)))
		cj = cjHH.Scale(1 + 0.5*(1-cjHH.Dot(cjHH)))
		ck = ckHH.Scale(1 + 0.5*(1-ckHH.Dot(ckHH)))
	}

	rf.frame.SetColumn(0, ci)
	rf.frame.SetColumn(1, cj)
	rf.frame.SetColumn(2, ck)
}

// OrthonormalizeSVD replaces the rotation part with its closest rotation
// matrix (polar decomposition R = U·Vᵀ).
func (rf *ReferenceFrame) OrthonormalizeSVD() error {
	r := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.Set(i, j, rf.frame.At(i, j))
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(r, mat.SVDFull); !ok {
		return errSVDFailed
	}
	var u, v, rot mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	rot.Mul(&u, v.T())

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rf.frame.Set(i, j, rot.At(i, j))
		}
	}
	return nil
}

// OrthogonalError is the RMS of the pairwise dot products of the axes.
func (rf *ReferenceFrame) OrthogonalError() float64 {
	ci := rf.frame.Column(0)
	cj := rf.frame.Column(1)
	ck := rf.frame.Column(2)

	dij := ci.Dot(cj)
	djk := cj.Dot(ck)
	dki := ck.Dot(ci)
	return math.Sqrt(oneThird * (dij*dij + djk*djk + dki*dki))
}

// LengthError is the RMS deviation of the squared axis lengths from one.
func (rf *ReferenceFrame) LengthError() float64 {
	dii := math.Abs(1 - rf.frame.Column(0).LengthSquared())
	djj := math.Abs(1 - rf.frame.Column(1).LengthSquared())
	dkk := math.Abs(1 - rf.frame.Column(2).LengthSquared())
	return math.Sqrt(oneThird * (dii + djj + dkk))
}

// Distance is the straight-line distance in metres between two positions.
func Distance(a, b Position) float64 {
	return toEarth(a).Sub(toEarth(b)).Length()
}

func toEarth(p Position) geom.Vec3 {
	return earthToGeodetic(p).Column(3)
}

func positionOf(o geom.Vec3) Position {
	r := o.Length()
	return Position{
		Longitude: math.Atan2(o.Y, o.X),
		Latitude:  math.Asin(o.Z / r),
		Altitude:  r - EarthRadius,
	}
}

// earthToGeodetic is the north-east-down frame at p.
func earthToGeodetic(p Position) geom.Mat4 {
	sL, cL := math.Sincos(p.Longitude)
	sB, cB := math.Sincos(p.Latitude)
	r := EarthRadius + p.Altitude

	return geom.MustMat4(
		-cL*sB, -sL, -cL*cB, r*cL*cB,
		-sL*sB, cL, -sL*cB, r*sL*cB,
		cB, 0, -sB, r*sB,
		0, 0, 0, 1,
	)
}

// geodeticToEarth is the transpose of the rotation part of earthToGeodetic,
// keeping the same translation column.
func geodeticToEarth(p Position) geom.Mat4 {
	sL, cL := math.Sincos(p.Longitude)
	sB, cB := math.Sincos(p.Latitude)
	r := EarthRadius + p.Altitude

	return geom.MustMat4(
		-cL*sB, -sL*sB, cB, r*cL*cB,
		-sL, cL, 0, r*sL*cB,
		-cL*cB, -sL*cB, -sB, r*sB,
		0, 0, 0, 1,
	)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
