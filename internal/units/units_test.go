package units

import (
	"testing"

	"github.com/banshee-data/flightpath/internal/testutil"
)

func TestKMToM(t *testing.T) {
	testutil.CheckReal(t, KMToM(-0.88973), -889.73, 1)
	testutil.CheckReal(t, KMToM(1.0), 1000.0, 1)
	testutil.CheckReal(t, KMToM(2.45589), 2455.89, 1)
}

func TestMToM(t *testing.T) {
	testutil.CheckReal(t, MToM(-0.54690), -0.54690, 1)
	testutil.CheckReal(t, MToM(1.0), 1.0, 1)
	testutil.CheckReal(t, MToM(46657.0), 46657.0, 1)
}

func TestMMToM(t *testing.T) {
	testutil.CheckReal(t, MMToM(-0.00468), -0.00000468, 1)
	testutil.CheckReal(t, MMToM(1.0), 0.001, 1)
	testutil.CheckReal(t, MMToM(45668.0), 45.668, 1)
}

func TestFtToM(t *testing.T) {
	testutil.CheckReal(t, FtToM(-0.00468), -0.001426464, 4)
	testutil.CheckReal(t, FtToM(1.0), 0.3048, 1)
	testutil.CheckReal(t, FtToM(45668.0), 13919.6064, 4)
}

func TestMToFt(t *testing.T) {
	testutil.CheckReal(t, MToFt(-0.001426464), -0.00468, 4)
	testutil.CheckReal(t, MToFt(0.3048), 1.0, 1)
	testutil.CheckReal(t, MToFt(13919.6064), 45668.0, 4)
}

func TestDegToRad(t *testing.T) {
	for i := 0; i <= 8; i++ {
		deg := 45.0 * float64(i)
		testutil.CheckReal(t, DegToRad(deg), float64(i)/4.0*Pi, 4)
	}
}

func TestRadToDeg(t *testing.T) {
	for i := 0; i <= 8; i++ {
		rad := float64(i) / 4.0 * Pi
		testutil.CheckReal(t, RadToDeg(rad), 45.0*float64(i), 4)
	}
}

func TestDegRadRoundTrip(t *testing.T) {
	for _, deg := range []float64{-180, -0.4, 0, 0.009, 15.755530969, 178.9, 359.99} {
		testutil.CheckReal(t, RadToDeg(DegToRad(deg)), deg, 4)
	}
}
