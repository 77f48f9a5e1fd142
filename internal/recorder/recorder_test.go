package recorder

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flightpath/internal/check"
	"github.com/banshee-data/flightpath/internal/frame"
	"github.com/banshee-data/flightpath/internal/fsutil"
	"github.com/banshee-data/flightpath/internal/geom"
	"github.com/banshee-data/flightpath/internal/kml"
	"github.com/banshee-data/flightpath/internal/testutil"
	"github.com/banshee-data/flightpath/internal/units"
)

// inDegrees undoes the unit conversion done on read so values can be
// compared with the file text.
type inDegrees struct {
	time, lon, lat, alt, hdg, pitch, roll, vx, vy, vz, wx, wy, wz, ax, ay, az float64
}

func degrees(e Entry) inDegrees {
	d := units.RadToDeg
	return inDegrees{
		e.Time, d(e.Longitude), d(e.Latitude), e.Altitude,
		d(e.TrueHeading), d(e.Pitch), d(e.Roll),
		e.VX, e.VY, e.VZ,
		d(e.OmegaX), d(e.OmegaY), d(e.OmegaZ),
		e.AX, e.AY, e.AZ,
	}
}

func TestReadFile(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.ReadFile("testdata/UnitTest.txt"))

	data := r.Data()
	require.Len(t, data, 2)

	want := []inDegrees{
		{2733.92, 15.755530969, 42.900372544, 3657.4, 178.9, 0.2, -0.4, 169.2, -1.0, 0.7, -0.030, 0.009, 0.038, 0.00781, -0.00391, 0.07031},
		{2733.93, 15.755531608, 42.900354289, 3657.4, 178.9, 0.2, -0.4, 169.2, -1.0, 0.7, -0.032, 0.010, 0.039, 0.00781, -0.00391, 0.06641},
	}
	for i := range want {
		got := degrees(data[i])
		gotV := []float64{got.time, got.lon, got.lat, got.alt, got.hdg, got.pitch, got.roll, got.vx, got.vy, got.vz, got.wx, got.wy, got.wz, got.ax, got.ay, got.az}
		w := want[i]
		wantV := []float64{w.time, w.lon, w.lat, w.alt, w.hdg, w.pitch, w.roll, w.vx, w.vy, w.vz, w.wx, w.wy, w.wz, w.ax, w.ay, w.az}
		for j := range wantV {
			testutil.CheckReal(t, gotV[j], wantV[j], 8)
		}
	}
}

func TestReadFileMissing(t *testing.T) {
	r := New(fsutil.NewMemoryFileSystem())
	err := r.ReadFile("data/missing.txt")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Recorder: Could not open file data/missing.txt: "), err.Error())
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var cerr *check.Error
	assert.ErrorAs(t, err, &cerr)
}

func TestReadFileKeepsPermissionError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	path := filepath.Join(t.TempDir(), "locked.txt")
	require.NoError(t, os.WriteFile(path, []byte("0 15 42 1000 90 0 0 100 0 0 0 0 0 0 0 0\n"), 0o000))

	err := New(nil).ReadFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.NotErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "Recorder: Could not open file "+path)
}

func TestReadSkipsBlankAndComments(t *testing.T) {
	in := `# time lon lat alt hdg pitch roll vx vy vz wx wy wz ax ay az

0 15 42 1000 90 0 0 100 0 0 0 0 0 0 0 0
   
1 15 42 1000 90 0 0 100 0 0 0 0 0 0 0 0
`
	r := New(nil)
	require.NoError(t, r.Read(strings.NewReader(in)))
	assert.Len(t, r.Data(), 2)
}

func TestReadReportsBadLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"too few columns", "0 1 2\n", "line 1: expected 16 columns, got 3"},
		{"not a number", "0 15 42 1000 90 0 0 x 0 0 0 0 0 0 0 0\n", "line 1: column 8"},
		{"second line", "0 15 42 1000 90 0 0 100 0 0 0 0 0 0 0 0\n1 2\n", "line 2:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(nil).Read(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFormatColumnWidths(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.ReadFile("testdata/UnitTest.txt"))

	got := r.Data()[0].Format()
	want := "2733.92   15.755530969  42.900372544  3657.4 178.9   0.2   -0.4  169.2   -1.0    0.7    -0.030     0.009     0.038   0.00781  -0.00391   0.07031\n"
	assert.Equal(t, want, got)
}

func TestWriteReadRoundTrip(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	r := New(mfs)

	p := frame.Position{Longitude: units.DegToRad(15.5), Latitude: units.DegToRad(42.9), Altitude: 3657.4}
	a := frame.Attitude{Heading: units.DegToRad(178.9), Pitch: units.DegToRad(0.2), Roll: units.DegToRad(-0.4)}
	r.WriteData(0, p, a, geom.Vec3{X: 169.2, Y: -1, Z: 0.7})
	r.WriteData(0.01, p, a, geom.Vec3{X: 169.3, Y: -1, Z: 0.7})
	require.NoError(t, r.WriteFile("out/track.txt"))

	back := New(mfs)
	require.NoError(t, back.ReadFile("out/track.txt"))

	opt := cmpopts.EquateApprox(0, 1e-6)
	if diff := cmp.Diff(r.Output(), back.Data(), opt); diff != "" {
		t.Errorf("round trip mismatch (-wrote +read):\n%s", diff)
	}
}

func TestDumpKML(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	r := New(mfs)
	require.NoError(t, r.Read(strings.NewReader("2733.92 15.755530969 42.900372544 3657.4 178.9 0.2 -0.4 169.2 -1.0 0.7 -0.030 0.009 0.038 0.00781 -0.00391 0.07031\n")))
	e := r.Data()[0]
	r.WriteData(e.Time, e.Position(), e.Attitude(), e.Velocity())

	require.NoError(t, r.DumpKML("flight.kml"))
	data, err := mfs.ReadFile("flight.kml")
	require.NoError(t, err)

	doc, err := kml.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, doc.Placemarks, 2)
	for _, pm := range doc.Placemarks {
		require.Len(t, pm.Coordinates, 1)
		assert.InDelta(t, 15.755530969, pm.Coordinates[0].Longitude, 1e-9)
		assert.InDelta(t, 42.900372544, pm.Coordinates[0].Latitude, 1e-9)
		assert.InDelta(t, 3657.4, pm.Coordinates[0].Altitude, 1e-9)
	}
}

func TestEntryVectors(t *testing.T) {
	e, err := ParseEntry("1 0 0 0 0 0 0 1 2 3 180 0 -90 4 5 6")
	require.NoError(t, err)

	assert.Equal(t, geom.Vec3{X: 1, Y: 2, Z: 3}, e.Velocity())
	assert.Equal(t, geom.Vec3{X: 4, Y: 5, Z: 6}, e.Acceleration())
	rates := e.Rates()
	assert.InDelta(t, units.Pi, rates.X, 1e-15)
	assert.InDelta(t, -units.Pi/2, rates.Z, 1e-15)
}
