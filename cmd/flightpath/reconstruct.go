package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/banshee-data/flightpath/internal/config"
	"github.com/banshee-data/flightpath/internal/flightdb"
	"github.com/banshee-data/flightpath/internal/fsutil"
	"github.com/banshee-data/flightpath/internal/monitoring"
	"github.com/banshee-data/flightpath/internal/reconstruct"
	"github.com/banshee-data/flightpath/internal/recorder"
	"github.com/banshee-data/flightpath/internal/report"
	"github.com/banshee-data/flightpath/internal/security"
	"github.com/banshee-data/flightpath/internal/units"
)

type reconstructArgs struct {
	configPath string
	input      string
	outputDir  string
	name       string
	store      bool
	plots      bool
}

func handleReconstruct(args []string) {
	fs := flag.NewFlagSet("reconstruct", flag.ExitOnError)
	var a reconstructArgs
	fs.StringVar(&a.configPath, "config", "", "JSON configuration file")
	fs.StringVar(&a.input, "input", "", "Recorder file to reconstruct (overrides config input)")
	fs.StringVar(&a.outputDir, "output-dir", "", "Directory for KML, track and plots (overrides config output_dir)")
	fs.StringVar(&a.name, "name", "", "Flight name when storing (defaults to the input file name)")
	fs.BoolVar(&a.store, "store", false, "Store the flight in the flight database")
	fs.BoolVar(&a.plots, "plots", false, "Write PNG plots and an HTML error report")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitOnError(runReconstruct(ctx, os.Stdout, a))
}

func runReconstruct(ctx context.Context, out io.Writer, a reconstructArgs) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	monitoring.SetLevel(cfg.GetLogLevel())

	opts := cfg.ReconstructOptions()
	if a.input != "" {
		opts.Input = a.input
	}
	if opts.Input == "" {
		return fmt.Errorf("no input: pass --input or set input in the config")
	}
	outputDir := cfg.GetOutputDir()
	if a.outputDir != "" {
		outputDir = a.outputDir
	}

	app, err := reconstruct.New(opts)
	if err != nil {
		return err
	}
	summary, err := app.Run(ctx)
	if err != nil {
		return err
	}

	written, err := writeOutputs(cfg, outputDir, app, a.plots)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n", summary)
	fmt.Fprintf(out, "mean speed %s, orthogonality error %.3g, length error %.3g\n",
		units.FormatSpeed(summary.MeanSpeed, cfg.GetSpeedUnits()), summary.OrthogonalError, summary.LengthError)
	for _, p := range written {
		fmt.Fprintf(out, "wrote %s\n", p)
	}

	if !a.store {
		return nil
	}
	db, err := flightdb.NewDB(cfg.GetDBPath())
	if err != nil {
		return err
	}
	defer db.Close()

	name := a.name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(opts.Input), filepath.Ext(opts.Input))
	}
	rec := app.Recorder()
	f, err := db.SaveFlight(flightdb.Flight{
		Name:           name,
		Source:         opts.Input,
		VelocitySource: string(opts.Velocity),
		Duration:       summary.Duration,
		FinalError:     summary.FinalError,
		MaxError:       summary.MaxError,
	}, rec.Data(), rec.Output())
	if err != nil {
		return fmt.Errorf("store flight: %w", err)
	}
	fmt.Fprintf(out, "stored flight %s (%s)\n", f.ID, f.Name)
	return nil
}

// writeOutputs writes the KML and reconstructed track into dir and, when
// plots is set, the PNG plots and HTML report. It returns the paths written.
func writeOutputs(cfg *config.Config, dir string, app *reconstruct.Application, plots bool) ([]string, error) {
	fsys := fsutil.OSFileSystem{}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var written []string
	output := func(name string, write func(path string) error) error {
		path, err := security.OutputPath(dir, name)
		if err != nil {
			return err
		}
		if err := write(path); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	rec := app.Recorder()
	if err := output(cfg.GetKMLFile(), rec.DumpKML); err != nil {
		return written, err
	}
	if err := output(cfg.GetTrackFile(), rec.WriteFile); err != nil {
		return written, err
	}
	if !plots {
		return written, nil
	}

	w := report.New(fsys)
	original, reconstructed := rec.Data(), rec.Output()
	for _, r := range []struct {
		name  string
		write func(string, []recorder.Entry, []recorder.Entry) error
	}{
		{"track.png", w.PlotTrack},
		{"altitude.png", w.PlotAltitude},
		{"error.png", w.PlotError},
		{"report.html", w.WriteErrorChart},
	} {
		if err := output(r.name, func(path string) error { return r.write(path, original, reconstructed) }); err != nil {
			return written, err
		}
	}
	return written, nil
}
