package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 10 * time.Second

// Server hosts the gRPC and HTTP transports of one Service.
type Server struct {
	grpcListener net.Listener
	httpListener net.Listener
	grpcServer   *grpc.Server
	httpServer   *http.Server
	health       *health.Server
	log          *slog.Logger
}

// NewGRPCServer builds a grpc.Server with the starforce and health services
// registered and tracing attached.
func NewGRPCServer(svc *Service) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	RegisterStarforceServer(gs, &GRPCServer{svc: svc})
	grpc_health_v1.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return gs, hs
}

// NewServer listens on both addresses. An empty httpAddr disables HTTP.
func NewServer(svc *Service, grpcAddr, httpAddr string) (*Server, error) {
	gl, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", grpcAddr, err)
	}
	s := &Server{grpcListener: gl, log: svc.log}
	s.grpcServer, s.health = NewGRPCServer(svc)

	if httpAddr != "" {
		hl, err := net.Listen("tcp", httpAddr)
		if err != nil {
			_ = gl.Close()
			return nil, fmt.Errorf("listen on %s: %w", httpAddr, err)
		}
		s.httpListener = hl
		s.httpServer = &http.Server{
			Handler:           svc.HTTPHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return s, nil
}

// GRPCAddr returns the gRPC listener address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// HTTPAddr returns the HTTP listener address, or "" when HTTP is disabled.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Serve runs both transports until ctx is cancelled or one of them fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	serveErr := make(chan error, 2)
	s.log.Info("grpc server listening", "addr", s.GRPCAddr())
	go func() {
		err := s.grpcServer.Serve(s.grpcListener)
		if errors.Is(err, grpc.ErrServerStopped) {
			err = nil
		}
		serveErr <- err
	}()
	if s.httpServer != nil {
		s.log.Info("http server listening", "addr", s.HTTPAddr())
		go func() {
			err := s.httpServer.Serve(s.httpListener)
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			serveErr <- err
		}()
	}

	select {
	case <-ctx.Done():
		s.shutdown()
		return nil
	case err := <-serveErr:
		s.shutdown()
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

func (s *Server) shutdown() {
	s.health.Shutdown()
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.Warn("http shutdown", "error", err)
		}
	}
	s.grpcServer.GracefulStop()
}

// Close releases listeners and stops both transports immediately.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
}
