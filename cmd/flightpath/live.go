package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/flightpath/internal/config"
	"github.com/banshee-data/flightpath/internal/datalink"
	"github.com/banshee-data/flightpath/internal/flightdb"
	"github.com/banshee-data/flightpath/internal/monitoring"
	"github.com/banshee-data/flightpath/internal/reconstruct"
	"github.com/banshee-data/flightpath/internal/recorder"
	"github.com/banshee-data/flightpath/internal/timeutil"
	"github.com/banshee-data/flightpath/internal/units"
)

type liveArgs struct {
	configPath string
	port       string
	pcap       string
	udpPort    int
	outputDir  string
	name       string
	listen     string
	grpcListen string
	store      bool
}

func handleLive(args []string) {
	fs := flag.NewFlagSet("live", flag.ExitOnError)
	var a liveArgs
	fs.StringVar(&a.configPath, "config", "", "JSON configuration file")
	fs.StringVar(&a.port, "port", "", "Serial device of the datalogger (overrides config serial.port)")
	fs.StringVar(&a.pcap, "pcap", "", "Replay datalogger lines from a pcap or pcapng capture instead of a serial port")
	fs.IntVar(&a.udpPort, "udp-port", -1, "UDP destination port of the datalogger feed in the capture, 0 for any")
	fs.StringVar(&a.outputDir, "output-dir", "", "Directory for the KML and track written on exit")
	fs.StringVar(&a.name, "name", "", "Flight name when storing")
	fs.StringVar(&a.listen, "listen", "", "Debug HTTP listen address (overrides config debug_listen)")
	fs.StringVar(&a.grpcListen, "grpc-listen", "", "gRPC health listen address (overrides config grpc_listen)")
	fs.BoolVar(&a.store, "store", false, "Store samples in the flight database as they arrive")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitOnError(runLive(ctx, os.Stdout, a))
}

// liveFlight owns the incremental reconstruction and its storage.
type liveFlight struct {
	opts   reconstruct.Options
	health *datalink.HealthServer
	db     *flightdb.DB
	flight flightdb.Flight
	app    *reconstruct.Application
}

func (l *liveFlight) handle(e recorder.Entry) error {
	l.health.MarkLine()

	if l.app == nil {
		app, err := reconstruct.FromEntries([]recorder.Entry{e}, l.opts)
		if err != nil {
			return err
		}
		l.app = app
		if l.db != nil {
			f, err := l.db.CreateFlight(l.flight)
			if err != nil {
				return fmt.Errorf("create flight: %w", err)
			}
			l.flight = f
			monitoring.Info("recording live flight %s (%s)", f.ID, f.Name)
		}
		return l.store(true)
	}

	ok, err := l.app.Feed(e)
	if err != nil {
		return err
	}
	return l.store(ok)
}

// store appends the newest original sample and, when the step was taken,
// the newest reconstructed sample.
func (l *liveFlight) store(stepped bool) error {
	if l.db == nil {
		return nil
	}
	rec := l.app.Recorder()
	data := rec.Data()
	if err := l.db.AppendSample(l.flight.ID, flightdb.Original, len(data)-1, data[len(data)-1]); err != nil {
		return err
	}
	if !stepped {
		return nil
	}
	output := rec.Output()
	return l.db.AppendSample(l.flight.ID, flightdb.Reconstructed, len(output)-1, output[len(output)-1])
}

func (l *liveFlight) finish() (reconstruct.Summary, error) {
	s := l.app.Summary()
	if l.db == nil {
		return s, nil
	}
	l.flight.Samples = len(l.app.Recorder().Data())
	l.flight.Duration = s.Duration
	l.flight.FinalError = s.FinalError
	l.flight.MaxError = s.MaxError
	return s, l.db.UpdateStats(l.flight)
}

func runLive(ctx context.Context, out io.Writer, a liveArgs) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	monitoring.SetLevel(cfg.GetLogLevel())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mux := http.NewServeMux()
	var (
		lines      <-chan string
		monitorErr <-chan error
		source     string
	)
	switch {
	case a.pcap != "":
		udpPort := cfg.GetUDPPort()
		if a.udpPort >= 0 {
			udpPort = a.udpPort
		}
		f, err := os.Open(a.pcap)
		if err != nil {
			return fmt.Errorf("open capture: %w", err)
		}
		captured, err := datalink.ReadPcap(f, udpPort)
		f.Close()
		if err != nil {
			return fmt.Errorf("read capture %s: %w", a.pcap, err)
		}
		monitoring.Info("replaying %d lines from %s", len(captured), a.pcap)
		lines = datalink.Replay(ctx, captured)
		source = a.pcap

	default:
		port := cfg.GetSerialPort()
		if a.port != "" {
			port = a.port
		}
		if port == "" {
			return fmt.Errorf("no datalogger: pass --port, --pcap or set serial.port in the config")
		}
		m, err := datalink.NewRealSerialMux(port, cfg.GetPortOptions())
		if err != nil {
			return err
		}
		defer m.Close()
		m.AttachAdminRoutes(mux)

		monitoring.Info("reading datalogger on %s (%s)", port, cfg.GetPortOptions())
		lines, monitorErr = datalink.Follow(ctx, m)
		source = port
	}

	live := &liveFlight{
		opts:   cfg.ReconstructOptions(),
		health: datalink.NewHealthServer(timeutil.RealClock{}, cfg.GetHealthStaleAfter()),
		flight: flightdb.Flight{
			Name:           a.name,
			Source:         source,
			VelocitySource: string(cfg.GetVelocitySource()),
		},
	}
	if live.flight.Name == "" {
		live.flight.Name = "live " + time.Now().UTC().Format(time.RFC3339)
	}
	if a.store {
		db, err := flightdb.NewDB(cfg.GetDBPath())
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.AttachAdminRoutes(mux); err != nil {
			return err
		}
		live.db = db
	}

	grpcAddr := cfg.GetGRPCListen()
	if a.grpcListen != "" {
		grpcAddr = a.grpcListen
	}
	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen gRPC: %w", err)
	}
	httpAddr := cfg.GetDebugListen()
	if a.listen != "" {
		httpAddr = a.listen
	}
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		grpcLis.Close()
		return fmt.Errorf("listen HTTP: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		live.health.Watch(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := live.health.Serve(ctx, grpcLis); err != nil {
			monitoring.Error("gRPC health server: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		serveDebug(ctx, httpLis, mux)
	}()

	stats, err := datalink.Ingest(ctx, lines, live.handle)
	cancel()
	wg.Wait()
	if monitorErr != nil {
		if err := <-monitorErr; err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Error("datalink monitor stopped: %v", err)
		}
	}
	monitoring.Info("ingest finished: %s", stats)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if live.app == nil {
		fmt.Fprintf(out, "no samples received (%s)\n", stats)
		return nil
	}

	summary, err := live.finish()
	if err != nil {
		return fmt.Errorf("update flight stats: %w", err)
	}
	fmt.Fprintf(out, "%s\n", summary)
	fmt.Fprintf(out, "mean speed %s, %s\n", units.FormatSpeed(summary.MeanSpeed, cfg.GetSpeedUnits()), stats)
	if live.db != nil {
		fmt.Fprintf(out, "stored flight %s (%s)\n", live.flight.ID, live.flight.Name)
	}

	outputDir := cfg.GetOutputDir()
	if a.outputDir != "" {
		outputDir = a.outputDir
	}
	written, err := writeOutputs(cfg, outputDir, live.app, false)
	for _, p := range written {
		fmt.Fprintf(out, "wrote %s\n", p)
	}
	return err
}

// serveDebug serves mux on lis until ctx is done and then shuts down with
// a five second grace period.
func serveDebug(ctx context.Context, lis net.Listener, mux *http.ServeMux) {
	server := &http.Server{Handler: mux}

	go func() {
		if err := server.Serve(lis); err != nil && err != http.ErrServerClosed {
			monitoring.Error("debug HTTP server: %v", err)
		}
	}()
	monitoring.Info("debug routes on http://%s/debug/", lis.Addr())

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Warn("debug HTTP server shutdown: %v", err)
	}
}
