// Package grpc serves the standard gRPC health service. The status follows
// the reachability of the account store.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/neexa/neexa-backend/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall "" entry.
const ServiceName = "neexa.Accounts"

const (
	defaultCheckInterval = 10 * time.Second
	stopGrace            = 5 * time.Second
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthServer struct {
	address  string
	store    Pinger
	logger   logging.Logger
	health   *health.Server
	interval time.Duration
}

func NewHealthServer(a string, l logging.Logger, store Pinger) *HealthServer {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		address:  a,
		store:    store,
		logger:   l.With("module", "grpc_server"),
		health:   h,
		interval: defaultCheckInterval,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *HealthServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)
	return s.Serve(ctx, listen)
}

// Serve serves the health service on lis until ctx is done, then reports
// NOT_SERVING and stops gracefully.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.check(ctx)

	go func() {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info(ctx, "Stopping gRPC server...")
				s.health.Shutdown()
				s.stop(srv)
				return
			case <-t.C:
				s.check(ctx)
			}
		}
	}()

	return srv.Serve(lis)
}

// check pings the store and updates the reported status.
func (s *HealthServer) check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn(ctx, "store unreachable", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// stop drains in-flight calls, cutting open Watch streams after a grace period.
func (s *HealthServer) stop(srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopGrace):
		srv.Stop()
	}
}
