// Package grpc serves the standard gRPC health protocol. Status follows the
// same component checks as the HTTP readiness endpoint and is refreshed on a
// fixed interval.
package grpc

import (
	"context"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// ServiceName is the health service name reported alongside the server-wide
// "" entry.
const ServiceName = "ibex.mapper.v1.Mapper"

const (
	defaultGracefulTimeout = 10 * time.Second
	defaultPollInterval    = 15 * time.Second
	defaultCheckTimeout    = 5 * time.Second
)

var errAlreadyStarted = errors.New(errors.CodeInternal, "grpc server already started")

var defaultKeepaliveParams = keepalive.ServerParameters{
	MaxConnectionIdle: 15 * time.Minute,
	Time:              5 * time.Minute,
	Timeout:           time.Second,
}

// Checker is one readiness component.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Option configures the Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger          logging.Logger
	gracefulTimeout time.Duration
	pollInterval    time.Duration
	checkTimeout    time.Duration
}

func WithLogger(l logging.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// WithGracefulTimeout bounds GracefulStop before the server is stopped hard.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}

// WithPollInterval sets how often the checks rerun while serving.
func WithPollInterval(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// Server wraps a grpc.Server that exposes only the health service.
type Server struct {
	grpcServer   *grpc.Server
	healthServer *health.Server
	checkers     []Checker
	opts         *serverOptions

	mu      sync.Mutex
	started bool
	serving bool
	stop    chan struct{}
}

// NewServer builds a Server reporting NOT_SERVING until the first Refresh.
func NewServer(checkers []Checker, opts ...Option) *Server {
	sopts := &serverOptions{
		gracefulTimeout: defaultGracefulTimeout,
		pollInterval:    defaultPollInterval,
		checkTimeout:    defaultCheckTimeout,
	}
	for _, o := range opts {
		o(sopts)
	}
	if sopts.logger == nil {
		sopts.logger = logging.NewNopLogger()
	}
	sopts.logger = sopts.logger.Named("grpc")

	gs := grpc.NewServer(grpc.KeepaliveParams(defaultKeepaliveParams))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		grpcServer:   gs,
		healthServer: hs,
		checkers:     checkers,
		opts:         sopts,
		stop:         make(chan struct{}),
	}
}

// Refresh runs every checker and publishes the combined status. It reports
// whether all components were healthy.
func (s *Server) Refresh(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opts.checkTimeout)
	defer cancel()

	healthy := true
	for _, c := range s.checkers {
		if err := c.Check(ctx); err != nil {
			healthy = false
			s.opts.logger.Warn("health check failed", logging.String("component", c.Name()), logging.Err(err))
		}
	}

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if healthy {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.mu.Lock()
	changed := s.serving != healthy
	s.serving = healthy
	s.mu.Unlock()

	s.healthServer.SetServingStatus("", status)
	s.healthServer.SetServingStatus(ServiceName, status)
	if changed {
		s.opts.logger.Info("grpc health status changed", logging.String("status", status.String()))
	}
	return healthy
}

// Serve refreshes the status, starts the poll loop and blocks serving lis
// until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	s.Refresh(context.Background())
	go s.poll()

	s.opts.logger.Info("grpc health server starting", logging.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

func (s *Server) poll() {
	ticker := time.NewTicker(s.opts.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Refresh(context.Background())
		case <-s.stop:
			return
		}
	}
}

// Stop marks every service NOT_SERVING and drains connections, forcing the
// stop once the graceful timeout or ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.stop)
	s.mu.Unlock()

	s.healthServer.Shutdown()

	ctx, cancel := context.WithTimeout(ctx, s.opts.gracefulTimeout)
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		s.opts.logger.Info("grpc health server stopped")
	case <-ctx.Done():
		s.opts.logger.Warn("grpc graceful stop timed out, forcing stop")
		s.grpcServer.Stop()
	}
	return nil
}
