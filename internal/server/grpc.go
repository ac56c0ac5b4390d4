package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// GRPCService serves a grpc.Server on a TCP address as a lifecycle Service.
type GRPCService struct {
	srv    *grpc.Server
	addr   string
	logger *zap.Logger
	ready  chan net.Addr
}

// NewGRPCService returns a Service that listens on addr and serves srv.
//
// Precondition: srv and logger must be non-nil; addr is a "host:port" string.
func NewGRPCService(srv *grpc.Server, addr string, logger *zap.Logger) *GRPCService {
	return &GRPCService{srv: srv, addr: addr, logger: logger, ready: make(chan net.Addr, 1)}
}

// Ready receives the bound address once the listener is open.
func (g *GRPCService) Ready() <-chan net.Addr {
	return g.ready
}

// Start listens on the configured address and serves until Stop.
func (g *GRPCService) Start() error {
	lis, err := net.Listen("tcp", g.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.addr, err)
	}
	g.logger.Info("gRPC server listening",
		zap.String("addr", lis.Addr().String()),
	)
	g.ready <- lis.Addr()
	if err := g.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop drains in-flight RPCs, forcing the server closed when ctx is done first.
func (g *GRPCService) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		g.logger.Warn("graceful stop timed out, forcing close")
		g.srv.Stop()
		<-done
	}
}
