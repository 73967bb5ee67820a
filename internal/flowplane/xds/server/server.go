// Package server hosts the ADS gRPC endpoint proxies connect to for
// Cluster/RouteConfiguration/Listener discovery.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	cachev3 "github.com/envoyproxy/go-control-plane/pkg/cache/v3"
	serverv3 "github.com/envoyproxy/go-control-plane/pkg/server/v3"

	discoveryv3 "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/flowplane/flowplane/pkg/logger"
)

// Server wraps the ADS gRPC transport around a go-control-plane
// SnapshotCache. The cache itself is populated by xds/cache.Manager, which
// this type does not know about — the only coupling is the SnapshotCache it
// serves out of.
type Server struct {
	grpcServer *grpc.Server
	cache      cachev3.SnapshotCache
	ads        serverv3.Server
	logger     *logger.EnvoyLogger
	port       int
}

// New creates an ADS server listening on port, backed by a fresh
// SnapshotCache keyed by node ID.
func New(port int, log *logger.EnvoyLogger) *Server {
	if log == nil {
		log = logger.NewDefaultEnvoyLogger()
	}

	cache := cachev3.NewSnapshotCache(true, cachev3.IDHash{}, log)
	ads := serverv3.NewServer(context.Background(), cache, nil)

	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	)

	return &Server{
		grpcServer: grpcServer,
		cache:      cache,
		ads:        ads,
		logger:     log,
		port:       port,
	}
}

// RegisterServices registers the ADS service with the gRPC server.
func (s *Server) RegisterServices() {
	discoveryv3.RegisterAggregatedDiscoveryServiceServer(s.grpcServer, s.ads)
}

// Start begins serving ADS on s.port. Blocks until the listener closes.
func (s *Server) Start() error {
	s.RegisterServices()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}

	s.logger.WithFields(map[string]interface{}{"port": s.port}).Info("starting xds server")

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.logger.Info("stopping xds server")
	s.grpcServer.GracefulStop()
}

// Cache returns the SnapshotCache backing this server, for wiring into
// xds/cache.Manager.
func (s *Server) Cache() cachev3.SnapshotCache {
	return s.cache
}

// Logger returns the logger instance shared with the snapshot cache.
func (s *Server) Logger() *logger.EnvoyLogger {
	return s.logger
}
