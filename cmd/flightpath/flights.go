package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/banshee-data/flightpath/internal/config"
	"github.com/banshee-data/flightpath/internal/flightdb"
	"github.com/banshee-data/flightpath/internal/fsutil"
	"github.com/banshee-data/flightpath/internal/kml"
	"github.com/banshee-data/flightpath/internal/recorder"
	"github.com/banshee-data/flightpath/internal/timeutil"
)

type flightsArgs struct {
	configPath string
	dbPath     string
	kmlPath    string
}

func handleFlights(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: flightpath flights list|show|delete|migrate [options] [flight-id|up|down|status]")
		os.Exit(1)
	}
	sub := args[0]

	fs := flag.NewFlagSet("flights "+sub, flag.ExitOnError)
	var a flightsArgs
	fs.StringVar(&a.configPath, "config", "", "JSON configuration file")
	fs.StringVar(&a.dbPath, "db", "", "Flight database path (overrides config db_path)")
	if sub == "show" {
		fs.StringVar(&a.kmlPath, "kml", "", "Export the stored original and reconstructed tracks to this KML file")
	}
	fs.Parse(args[1:])

	exitOnError(runFlights(os.Stdout, sub, fs.Args(), a))
}

func runFlights(out io.Writer, sub string, ids []string, a flightsArgs) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	dbPath := cfg.GetDBPath()
	if a.dbPath != "" {
		dbPath = a.dbPath
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("flight database %s: %w", dbPath, err)
	}

	if sub == "migrate" {
		return runMigrate(out, dbPath, ids)
	}

	db, err := flightdb.NewDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch sub {
	case "list":
		return listFlights(out, db)
	case "show", "delete":
		if len(ids) != 1 {
			return fmt.Errorf("flights %s takes exactly one flight id", sub)
		}
		if sub == "delete" {
			if err := db.DeleteFlight(ids[0]); err != nil {
				return err
			}
			fmt.Fprintf(out, "deleted flight %s\n", ids[0])
			return nil
		}
		return showFlight(out, db, ids[0], a.kmlPath)
	}
	return fmt.Errorf("unknown flights command %q (want list, show, delete or migrate)", sub)
}

// runMigrate moves the flight database schema by hand. The database is
// opened without the automatic upgrade so down stays applied.
func runMigrate(out io.Writer, dbPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("flights migrate takes one action: up, down or status")
	}
	db, err := flightdb.OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch args[0] {
	case "up":
		if err := db.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := db.MigrateDown(); err != nil {
			return err
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or status)", args[0])
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema version %d of %d", version, flightdb.LatestVersion)
	if dirty {
		fmt.Fprint(out, " (dirty)")
	}
	fmt.Fprintln(out)
	return nil
}

func listFlights(out io.Writer, db *flightdb.DB) error {
	flights, err := db.ListFlights()
	if err != nil {
		return err
	}
	if len(flights) == 0 {
		fmt.Fprintln(out, "no stored flights")
		return nil
	}
	fmt.Fprintf(out, "%-36s  %-24s  %-20s  %8s  %11s  %10s\n", "ID", "NAME", "CREATED", "SAMPLES", "DURATION", "MAX ERR")
	for _, f := range flights {
		fmt.Fprintf(out, "%-36s  %-24s  %-20s  %8d  %11s  %8.2f m\n",
			f.ID, f.Name, f.CreatedAt.Format(time.RFC3339), f.Samples, timeutil.FormatElapsed(f.Duration), f.MaxError)
	}
	return nil
}

func showFlight(out io.Writer, db *flightdb.DB, id, kmlPath string) error {
	f, err := db.GetFlight(id)
	if errors.Is(err, flightdb.ErrNotFound) {
		return fmt.Errorf("no flight with id %s", id)
	}
	if err != nil {
		return err
	}
	original, err := db.LoadTrack(id, flightdb.Original)
	if err != nil {
		return err
	}
	reconstructed, err := db.LoadTrack(id, flightdb.Reconstructed)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Flight %s\n", f.ID)
	fmt.Fprintf(out, "  name            %s\n", f.Name)
	fmt.Fprintf(out, "  source          %s\n", f.Source)
	fmt.Fprintf(out, "  velocity source %s\n", f.VelocitySource)
	fmt.Fprintf(out, "  created         %s\n", f.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "  samples         %d original, %d reconstructed\n", len(original), len(reconstructed))
	fmt.Fprintf(out, "  duration        %s\n", timeutil.FormatElapsed(f.Duration))
	fmt.Fprintf(out, "  error           final %.2f m, max %.2f m\n", f.FinalError, f.MaxError)
	if n := len(reconstructed); n > 0 {
		last := reconstructed[n-1]
		fmt.Fprintf(out, "  last position   %s\n", last.Position())
		fmt.Fprintf(out, "  last attitude   %s\n", last.Attitude())
	}

	if kmlPath == "" {
		return nil
	}
	doc := kml.NewFlightDocument(recorder.Coordinates(original), recorder.Coordinates(reconstructed))
	w, err := fsutil.OSFileSystem{}.Create(kmlPath)
	if err != nil {
		return err
	}
	if err := kml.Encode(w, doc); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", kmlPath)
	return nil
}
