package flightdb

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flightpath/internal/recorder"
	"github.com/banshee-data/flightpath/internal/timeutil"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) (*DB, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(epoch)
	db, err := NewDB(filepath.Join(t.TempDir(), "flights.db"), WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, clock
}

func sampleTrack(n int, offset float64) []recorder.Entry {
	out := make([]recorder.Entry, n)
	for i := range out {
		out[i] = recorder.Entry{
			Time:        2733.92 + float64(i)*0.01,
			Longitude:   0.27498 + offset,
			Latitude:    0.74874 - float64(i)*1e-7,
			Altitude:    3657.4,
			TrueHeading: 3.1224,
			Pitch:       0.0035,
			Roll:        -0.007,
			VX:          169.2,
			VY:          -1,
			VZ:          0.7,
			OmegaX:      -0.0005,
			OmegaY:      0.00016,
			OmegaZ:      0.00066,
			AX:          0.00781,
			AY:          -0.00391,
			AZ:          0.07031,
		}
	}
	return out
}

func TestPragmasApplied(t *testing.T) {
	db, _ := newTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var foreignKeys int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

func TestMigrations(t *testing.T) {
	db, _ := newTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(LatestVersion), version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(LatestVersion), version)

	// reopening an up-to-date database is a no-op
	require.NoError(t, db.MigrateUp())
}

func TestOpenDBLeavesSchemaAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flights.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(LatestVersion), version)
}

func TestSaveAndLoadFlight(t *testing.T) {
	db, _ := newTestDB(t)
	db.newID = func() string { return "flight-1" }

	original := sampleTrack(5, 0)
	reconstructed := sampleTrack(5, 1e-8)

	saved, err := db.SaveFlight(Flight{
		Name:       "UnitTest",
		Source:     "testdata/UnitTest.txt",
		Duration:   0.04,
		FinalError: 0.33,
		MaxError:   0.35,
	}, original, reconstructed)
	require.NoError(t, err)

	want := Flight{
		ID:             "flight-1",
		Name:           "UnitTest",
		Source:         "testdata/UnitTest.txt",
		VelocitySource: "recorded",
		CreatedAt:      epoch,
		Samples:        5,
		Duration:       0.04,
		FinalError:     0.33,
		MaxError:       0.35,
	}
	if diff := cmp.Diff(want, saved); diff != "" {
		t.Errorf("saved flight mismatch (-want +got):\n%s", diff)
	}

	got, err := db.GetFlight("flight-1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loaded flight mismatch (-want +got):\n%s", diff)
	}

	track, err := db.LoadTrack("flight-1", Original)
	require.NoError(t, err)
	if diff := cmp.Diff(original, track); diff != "" {
		t.Errorf("original track mismatch (-want +got):\n%s", diff)
	}

	track, err = db.LoadTrack("flight-1", Reconstructed)
	require.NoError(t, err)
	if diff := cmp.Diff(reconstructed, track); diff != "" {
		t.Errorf("reconstructed track mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveFlightGeneratesUUIDs(t *testing.T) {
	db, _ := newTestDB(t)

	a, err := db.SaveFlight(Flight{Name: "a", Source: "a.txt"}, nil, nil)
	require.NoError(t, err)
	b, err := db.SaveFlight(Flight{Name: "b", Source: "b.txt"}, nil, nil)
	require.NoError(t, err)

	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSaveFlightRollsBack(t *testing.T) {
	db, _ := newTestDB(t)
	db.newID = func() string { return "dup" }

	_, err := db.SaveFlight(Flight{Name: "first", Source: "x"}, sampleTrack(2, 0), nil)
	require.NoError(t, err)

	// same id again violates the primary key; nothing of the second
	// flight may remain
	_, err = db.SaveFlight(Flight{Name: "second", Source: "y"}, sampleTrack(3, 0), nil)
	require.Error(t, err)

	flights, err := db.ListFlights()
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, "first", flights[0].Name)

	track, err := db.LoadTrack("dup", Original)
	require.NoError(t, err)
	assert.Len(t, track, 2)
}

func TestListFlightsNewestFirst(t *testing.T) {
	db, clock := newTestDB(t)

	for _, name := range []string{"morning", "noon", "evening"} {
		_, err := db.SaveFlight(Flight{Name: name, Source: name + ".txt"}, nil, nil)
		require.NoError(t, err)
		clock.Advance(time.Hour)
	}

	flights, err := db.ListFlights()
	require.NoError(t, err)
	require.Len(t, flights, 3)
	assert.Equal(t, "evening", flights[0].Name)
	assert.Equal(t, "morning", flights[2].Name)
	assert.Equal(t, epoch.Add(2*time.Hour), flights[0].CreatedAt)
}

func TestLiveFlight(t *testing.T) {
	db, _ := newTestDB(t)

	f, err := db.CreateFlight(Flight{Name: "live", Source: "serial:/dev/ttyUSB0"})
	require.NoError(t, err)

	for i, e := range sampleTrack(4, 0) {
		require.NoError(t, db.AppendSample(f.ID, Original, i, e))
		require.NoError(t, db.AppendSample(f.ID, Reconstructed, i, e))
	}
	assert.Error(t, db.AppendSample(f.ID, Original, 0, recorder.Entry{}), "duplicate seq")

	f.Samples = 4
	f.FinalError = 1.5
	require.NoError(t, db.UpdateStats(f))

	got, err := db.GetFlight(f.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Samples)
	assert.Equal(t, 1.5, got.FinalError)

	assert.ErrorIs(t, db.UpdateStats(Flight{ID: "nope"}), ErrNotFound)
}

func TestDeleteFlight(t *testing.T) {
	db, _ := newTestDB(t)

	f, err := db.SaveFlight(Flight{Name: "gone", Source: "x"}, sampleTrack(3, 0), sampleTrack(3, 0))
	require.NoError(t, err)
	require.NoError(t, db.DeleteFlight(f.ID))

	_, err = db.GetFlight(f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.LoadTrack(f.ID, Original)
	assert.ErrorIs(t, err, ErrNotFound)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM track_samples").Scan(&n))
	assert.Zero(t, n)

	err = db.DeleteFlight(f.ID)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestAttachAdminRoutes(t *testing.T) {
	db, _ := newTestDB(t)
	saved, err := db.SaveFlight(Flight{Name: "admin", Source: "x"}, sampleTrack(2, 0), nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	serve := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "127.0.0.1:40000"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w
	}

	t.Run("flights", func(t *testing.T) {
		w := serve("/debug/flights")
		require.NotEqual(t, http.StatusNotFound, w.Code)
		if w.Code == http.StatusOK {
			var flights []Flight
			require.NoError(t, json.NewDecoder(w.Body).Decode(&flights))
			require.Len(t, flights, 1)
			assert.Equal(t, "admin", flights[0].Name)
		}
	})

	t.Run("flight", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, serve("/debug/flight").Code)
		assert.Equal(t, http.StatusNotFound, serve("/debug/flight?id=missing").Code)

		w := serve("/debug/flight?id=" + saved.ID)
		require.Equal(t, http.StatusOK, w.Code)
		var got struct {
			Name   string
			Tracks map[string][]recorder.Entry
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, "admin", got.Name)
		assert.Len(t, got.Tracks["original"], 2)
		assert.Empty(t, got.Tracks["reconstructed"])
	})

	t.Run("backup", func(t *testing.T) {
		w := serve("/debug/backup")
		require.NotEqual(t, http.StatusNotFound, w.Code)
		if w.Code == http.StatusOK {
			assert.Contains(t, w.Header().Get("Content-Disposition"), "flightpath-backup-")
			zr, err := gzip.NewReader(w.Body)
			require.NoError(t, err)
			data, err := io.ReadAll(zr)
			require.NoError(t, err)
			assert.Equal(t, "SQLite format 3\x00", string(data[:16]))
		}
	})

	t.Run("tailsql", func(t *testing.T) {
		w := serve("/debug/tailsql/")
		assert.NotEqual(t, http.StatusNotFound, w.Code)
	})
}
