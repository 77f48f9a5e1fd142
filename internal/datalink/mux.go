// Package datalink carries datalogger samples from a live feed into the
// reconstruction. A single port is fanned out to any number of line
// subscribers; the ingest loop is one of them and the admin tail another.
package datalink

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

var ErrWriteFailed = errors.New("failed to write to datalink port")

// subscriberBuffer is the per-subscriber backlog kept before lines are
// dropped for that subscriber.
const subscriberBuffer = 256

// SerialMux fans lines read from a single port out to subscribers.
type SerialMux[T SerialPorter] struct {
	port         T
	subscribers  map[string]*subscriber
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      atomic.Bool
	lines        atomic.Int64
	dropped      atomic.Int64
}

// Mux is the behaviour shared by every SerialMux instantiation.
type Mux interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
	SendCommand(string) error
	Monitor(context.Context) error
	Close() error
	Stats() MuxStats
	AttachAdminRoutes(*http.ServeMux)
}

type subscriber struct {
	ch      chan string
	dropped int64
}

// MuxStats counts lines seen by Monitor. Dropped is the total over every
// subscriber ever attached; Subscribers holds the drops of each current
// subscriber by id.
type MuxStats struct {
	Lines       int64            `json:"lines"`
	Dropped     int64            `json:"dropped"`
	Subscribers map[string]int64 `json:"subscribers,omitempty"`
}

var _ Mux = (*SerialMux[*TestableSerialPort])(nil)

func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]*subscriber),
	}
}

// randomID returns an 8 byte hex encoded subscriber id.
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers a new line channel. The id is needed to unsubscribe.
func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, subscriberBuffer)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = &subscriber{ch: ch}
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if sub, ok := s.subscribers[id]; ok {
		close(sub.ch)
		delete(s.subscribers, id)
	}
}

// SendCommand writes a newline terminated command to the port.
func (s *SerialMux[T]) SendCommand(command string) error {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor reads lines from the port until the context is cancelled, the
// port reaches EOF or the mux is closed. Lines are trimmed of trailing
// carriage returns before being delivered.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// the blocking scan.Scan runs on its own goroutine so the loop below
	// can still observe cancellation
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- strings.TrimRight(scan.Text(), "\r"):
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			if s.closing.Load() {
				return nil
			}
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					if !s.closing.Load() {
						return err
					}
				default:
				}
				return nil
			}
			if s.closing.Load() {
				return nil
			}
			s.lines.Add(1)
			s.broadcast(line)
		}
	}
}

func (s *SerialMux[T]) broadcast(line string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for _, sub := range s.subscribers {
		select {
		case sub.ch <- line:
		default:
			sub.dropped++
			s.dropped.Add(1)
		}
	}
}

// Stats reports how many lines were read and how many deliveries were
// dropped because a subscriber fell behind.
func (s *SerialMux[T]) Stats() MuxStats {
	stats := MuxStats{Lines: s.lines.Load(), Dropped: s.dropped.Load()}
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if len(s.subscribers) > 0 {
		stats.Subscribers = make(map[string]int64, len(s.subscribers))
		for id, sub := range s.subscribers {
			stats.Subscribers[id] = sub.dropped
		}
	}
	return stats
}

// Close closes every subscriber channel and then the port.
func (s *SerialMux[T]) Close() error {
	s.closing.Store(true)

	s.subscriberMu.Lock()
	for id, sub := range s.subscribers {
		close(sub.ch)
		delete(s.subscribers, id)
	}
	s.subscriberMu.Unlock()
	return s.port.Close()
}
