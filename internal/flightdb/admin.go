package flightdb

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/flightpath/internal/httputil"
	"github.com/banshee-data/flightpath/internal/monitoring"
	"github.com/banshee-data/flightpath/internal/recorder"
)

// AttachAdminRoutes mounts the flight store debug pages under /debug/ on mux:
// a tailsql console, JSON flight pages and a gzip backup download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://flightpath.db", db.DB, &tailsql.DBOptions{
		Label: "Flight DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("flights", "Stored flights as JSON", http.HandlerFunc(db.serveFlights))
	debug.HandleSilentFunc("flight", db.serveFlight)
	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(db.serveBackup))
	return nil
}

func (db *DB) serveFlights(w http.ResponseWriter, r *http.Request) {
	flights, err := db.ListFlights()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, flights)
}

// serveFlight returns one flight with its tracks, selected by ?id=.
func (db *DB) serveFlight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.BadRequest(w, "missing id")
		return
	}
	f, err := db.GetFlight(id)
	if errors.Is(err, ErrNotFound) {
		httputil.NotFound(w, fmt.Sprintf("no flight %s", id))
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	resp := struct {
		Flight
		Tracks map[TrackKind][]recorder.Entry
	}{Flight: f, Tracks: map[TrackKind][]recorder.Entry{}}
	for _, kind := range []TrackKind{Original, Reconstructed} {
		track, err := db.LoadTrack(id, kind)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		resp.Tracks[kind] = track
	}
	httputil.WriteJSONOK(w, resp)
}

func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("flightpath-backup-%d.db", db.clock.Now().Unix())
	backupPath := filepath.Join(os.TempDir(), name)
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("failed to remove backup file: %v", err)
		}
	}()

	f, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
	w.Header().Set("Content-Type", "application/gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, f); err != nil {
		monitoring.Logf("failed to stream backup: %v", err)
	}
}
