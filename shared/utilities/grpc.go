package utilities

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer is a standalone gRPC server that only answers grpc.health.v1 checks.
type HealthServer struct {
	grpcServer   *grpc.Server
	healthServer *health.Server
}

// NewHealthServer creates a HealthServer reporting SERVING for the overall
// server and for serviceName.
func NewHealthServer(serviceName string) *HealthServer {
	grpcServer := grpc.NewServer()
	healthServer := RegisterHealthServer(grpcServer)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &HealthServer{
		grpcServer:   grpcServer,
		healthServer: healthServer,
	}
}

// RegisterHealthServer registers the gRPC health check service.
func RegisterHealthServer(grpcServer *grpc.Server) *health.Server {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	return healthServer
}

// Serve blocks serving health checks on lis until Stop is called.
func (s *HealthServer) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Stop marks every service NOT_SERVING and stops the server gracefully.
func (s *HealthServer) Stop() {
	s.healthServer.Shutdown()
	s.grpcServer.GracefulStop()
}
