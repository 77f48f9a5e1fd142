package datalink

import (
	"context"
	"fmt"
	"strings"

	"github.com/banshee-data/flightpath/internal/monitoring"
	"github.com/banshee-data/flightpath/internal/recorder"
)

// Handler consumes one parsed datalogger sample. Returning an error stops
// the ingest loop.
type Handler func(recorder.Entry) error

// IngestStats counts what Ingest did with the lines it received.
type IngestStats struct {
	Lines     int `json:"lines"`
	Entries   int `json:"entries"`
	Skipped   int `json:"skipped"`
	Malformed int `json:"malformed"`
}

func (s IngestStats) String() string {
	return fmt.Sprintf("%d lines, %d samples, %d skipped, %d malformed", s.Lines, s.Entries, s.Skipped, s.Malformed)
}

// Ingest parses lines into samples and hands them to handle in arrival
// order. Blank and comment lines are skipped and malformed lines are
// logged and dropped. It returns when lines is closed, the context is
// cancelled or handle fails.
func Ingest(ctx context.Context, lines <-chan string, handle Handler) (IngestStats, error) {
	var stats IngestStats
	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()

		case line, ok := <-lines:
			if !ok {
				return stats, nil
			}
			stats.Lines++

			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				stats.Skipped++
				continue
			}
			entry, err := recorder.ParseEntry(line)
			if err != nil {
				stats.Malformed++
				monitoring.Warn("datalink: dropping line %d: %v", stats.Lines, err)
				continue
			}
			if err := handle(entry); err != nil {
				return stats, fmt.Errorf("handle line %d: %w", stats.Lines, err)
			}
			stats.Entries++
		}
	}
}

// Follow subscribes to m and runs its Monitor until ctx is done or the port
// ends. The line channel is closed once Monitor returns, after the lines
// already buffered for it, and Monitor's result is then sent on the error
// channel.
func Follow(ctx context.Context, m Mux) (<-chan string, <-chan error) {
	id, ch := m.Subscribe()
	errc := make(chan error, 1)
	go func() {
		err := m.Monitor(ctx)
		m.Unsubscribe(id)
		errc <- err
	}()
	return ch, errc
}

// Replay delivers lines on a channel that is closed after the last line
// or when ctx is cancelled.
func Replay(ctx context.Context, lines []string) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, line := range lines {
			select {
			case ch <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
