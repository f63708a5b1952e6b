package monitor

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/sensorkit/internal/monitoring"
)

// HealthServer publishes the standard gRPC health service. Both the named
// service and the server-wide "" entry start NOT_SERVING.
type HealthServer struct {
	address string
	service string
	server  *grpc.Server
	health  *health.Server
}

// NewHealthServer creates a health server for service on address.
func NewHealthServer(address, service string) *HealthServer {
	hs := &HealthServer{
		address: address,
		service: service,
		server:  grpc.NewServer(),
		health:  health.NewServer(),
	}
	healthpb.RegisterHealthServer(hs.server, hs.health)
	hs.SetServing(false)
	return hs
}

// SetServing reports the service as SERVING or NOT_SERVING.
func (hs *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	hs.health.SetServingStatus(hs.service, status)
	hs.health.SetServingStatus("", status)
}

// Start listens on the configured address and serves until ctx is cancelled.
func (hs *HealthServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", hs.address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return hs.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled, then stops gracefully.
func (hs *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("[Monitor] gRPC health server listening on %s", lis.Addr())
		errCh <- hs.server.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("health server: %w", err)
	case <-ctx.Done():
	}
	hs.health.Shutdown()
	hs.server.GracefulStop()
	<-errCh
	monitoring.Logf("[Monitor] gRPC health server stopped")
	return nil
}
