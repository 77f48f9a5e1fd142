package datalink

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/flightpath/internal/monitoring"
	"github.com/banshee-data/flightpath/internal/timeutil"
)

// HealthService is the gRPC health service name reported for the ingest.
const HealthService = "flightpath.datalink"

// DefaultStaleAfter is how long the link may stay quiet before it is
// reported as not serving.
const DefaultStaleAfter = 5 * time.Second

// HealthServer reports SERVING while datalogger samples keep arriving and
// NOT_SERVING once the link has been quiet for longer than staleAfter.
type HealthServer struct {
	srv        *health.Server
	clock      timeutil.Clock
	staleAfter time.Duration

	mu     sync.Mutex
	last   time.Time
	status healthpb.HealthCheckResponse_ServingStatus
}

func NewHealthServer(clock timeutil.Clock, staleAfter time.Duration) *HealthServer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	h := &HealthServer{
		srv:        health.NewServer(),
		clock:      clock,
		staleAfter: staleAfter,
	}
	h.mu.Lock()
	h.setLocked(healthpb.HealthCheckResponse_NOT_SERVING)
	h.mu.Unlock()
	return h
}

// Register installs the health service on s.
func (h *HealthServer) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// MarkLine records that a sample has just arrived.
func (h *HealthServer) MarkLine() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = h.clock.Now()
	h.setLocked(healthpb.HealthCheckResponse_SERVING)
}

// Refresh re-evaluates the status against the clock and returns it.
func (h *HealthServer) Refresh() healthpb.HealthCheckResponse_ServingStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	status := healthpb.HealthCheckResponse_SERVING
	if h.last.IsZero() || h.clock.Since(h.last) > h.staleAfter {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.setLocked(status)
	return status
}

// Status returns the last reported status without re-evaluating it.
func (h *HealthServer) Status() healthpb.HealthCheckResponse_ServingStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// setLocked publishes status. h.mu must be held so the freshness check and
// the write cannot interleave with another update.
func (h *HealthServer) setLocked(status healthpb.HealthCheckResponse_ServingStatus) {
	if h.status == status {
		return
	}
	h.status = status
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(HealthService, status)
	monitoring.Debug("datalink health: %s", status)
}

// Watch refreshes the status every half staleAfter until ctx is done,
// then shuts the health service down so watchers see NOT_SERVING.
func (h *HealthServer) Watch(ctx context.Context) {
	ticker := h.clock.NewTicker(h.staleAfter / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C():
			h.Refresh()
		}
	}
}

// Serve runs a gRPC server carrying the health service on lis until ctx
// is cancelled.
func (h *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	s := grpc.NewServer()
	h.Register(s)

	errc := make(chan error, 1)
	go func() {
		errc <- s.Serve(lis)
	}()
	monitoring.Info("gRPC health listening on %s", lis.Addr())

	select {
	case <-ctx.Done():
		s.GracefulStop()
		<-errc
		return nil
	case err := <-errc:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}
