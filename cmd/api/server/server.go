package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// Server runs the HTTP API and, optionally, the gRPC health server until its
// context is canceled, then drains both within ShutdownTimeout.
type Server struct {
	HTTP            *http.Server
	GRPC            *grpc.Server   // nil when the health server is disabled
	Health          *health.Server // nil when the health server is disabled
	GRPCAddr        string
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// Run listens on the configured addresses and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig

	httpLis, err := lc.Listen(ctx, "tcp", s.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.HTTP.Addr, err)
	}

	var grpcLis net.Listener
	if s.GRPC != nil {
		grpcLis, err = lc.Listen(ctx, "tcp", s.GRPCAddr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.GRPCAddr, err)
		}
	}

	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve serves on the given listeners until ctx is done. grpcLis is ignored
// when the gRPC server is disabled.
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Logger.Info("HTTP server running", zap.String("address", httpLis.Addr().String()))
		if err := s.HTTP.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if s.GRPC != nil {
		g.Go(func() error {
			s.Logger.Info("gRPC server running", zap.String("address", grpcLis.Addr().String()))
			if err := s.GRPC.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	s.Logger.Info("shutting down servers", zap.Duration("timeout", s.ShutdownTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	if s.Health != nil {
		s.Health.Shutdown()
	}

	if s.GRPC != nil {
		stopped := make(chan struct{})
		go func() {
			s.GRPC.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.GRPC.Stop()
		}
	}

	if err := s.HTTP.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	s.Logger.Info("servers stopped")
	return nil
}
