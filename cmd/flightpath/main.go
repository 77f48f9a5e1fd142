// Command flightpath reconstructs aircraft flight paths from recorded or
// live datalogger samples and manages the resulting flight store.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/banshee-data/flightpath/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "reconstruct":
		handleReconstruct(args)
	case "live":
		handleLive(args)
	case "flights":
		handleFlights(args)
	case "version":
		fmt.Println(version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`flightpath - flight path reconstruction from datalogger samples

Usage: flightpath <command> [options]

Commands:
  reconstruct  Integrate a recorded flight and write KML, track and plots
  live         Reconstruct incrementally from a serial datalogger or pcap
  flights      Manage stored flights and the flight database schema
  version      Show flightpath version
  help         Show this help message

Common Flags:
  --config <file>      JSON configuration file (see config/flightpath.defaults.json)
                       FLIGHTPATH_* environment variables override file values

Examples:
  # Reconstruct a recorded flight and store it
  flightpath reconstruct --input data/2017-01-17_Graz-Gleichenberg.txt --store --plots

  # Follow a datalogger on a serial port
  flightpath live --port /dev/ttyUSB0 --store

  # Replay a captured UDP feed
  flightpath live --pcap capture.pcapng --udp-port 5005

  # Export a stored flight as KML
  flightpath flights show --kml flight.kml <flight-id>

  # Roll the flight database back one schema version
  flightpath flights migrate down`)
}

// exitOnError prints err and exits with status 1.
func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
