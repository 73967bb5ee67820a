// Package server implements the HTTP routing and error-mapping layer
// described in spec §4.H: method/path dispatch, bearer-token/scope
// middleware, and the Native/Platform/token handlers.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/flowplane/flowplane/internal/flowplane/auth"
	"github.com/flowplane/flowplane/internal/flowplane/model"
	"github.com/flowplane/flowplane/internal/flowplane/platform"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
	"github.com/flowplane/flowplane/internal/flowplane/xds/cache"
	"github.com/flowplane/flowplane/pkg/logger"
)

// APIServer is the REST API server serving the Native and Platform surfaces.
type APIServer struct {
	mux    *http.ServeMux
	server *http.Server
	logger *logger.EnvoyLogger

	clusters  repository.Store[model.Cluster]
	routes    repository.Store[model.RouteConfiguration]
	listeners repository.Store[model.Listener]

	apiDefs     repository.Store[platform.ApiDefinition]
	serviceDefs repository.Store[platform.ServiceDefinition]

	tokens *auth.Service
	audit  repository.AuditLog
	xds    *cache.Manager

	defaultRouteConfigName string

	port         int
	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
}

// Deps bundles every collaborator NewAPIServer wires into the mux.
type Deps struct {
	Clusters  repository.Store[model.Cluster]
	Routes    repository.Store[model.RouteConfiguration]
	Listeners repository.Store[model.Listener]

	ApiDefinitions     repository.Store[platform.ApiDefinition]
	ServiceDefinitions repository.Store[platform.ServiceDefinition]

	Tokens *auth.Service
	Audit  repository.AuditLog
	XDS    *cache.Manager

	// DefaultRouteConfigName is the system-owned route configuration that
	// must never be deletable (spec §3).
	DefaultRouteConfigName string

	Logger       *logger.EnvoyLogger
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewAPIServer builds an APIServer and registers every route.
func NewAPIServer(deps Deps) *APIServer {
	s := &APIServer{
		mux:                    http.NewServeMux(),
		logger:                 deps.Logger,
		clusters:               deps.Clusters,
		routes:                 deps.Routes,
		listeners:              deps.Listeners,
		apiDefs:                deps.ApiDefinitions,
		serviceDefs:            deps.ServiceDefinitions,
		tokens:                 deps.Tokens,
		audit:                  deps.Audit,
		xds:                    deps.XDS,
		defaultRouteConfigName: deps.DefaultRouteConfigName,
		port:                   deps.Port,
		readTimeout:            deps.ReadTimeout,
		writeTimeout:           deps.WriteTimeout,
		idleTimeout:            deps.IdleTimeout,
	}
	s.setupRoutes()
	return s
}

func (s *APIServer) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/v1/clusters", s.requireScopes("clusters:write")(s.createCluster))
	s.mux.HandleFunc("GET /api/v1/clusters", s.requireScopes("clusters:read")(s.listClusters))
	s.mux.HandleFunc("GET /api/v1/clusters/{name}", s.requireScopes("clusters:read")(s.getCluster))
	s.mux.HandleFunc("PUT /api/v1/clusters/{name}", s.requireScopes("clusters:write")(s.updateCluster))
	s.mux.HandleFunc("DELETE /api/v1/clusters/{name}", s.requireScopes("clusters:write")(s.deleteCluster))

	s.mux.HandleFunc("POST /api/v1/route-configs", s.requireScopes("route-configs:write")(s.createRouteConfig))
	s.mux.HandleFunc("GET /api/v1/route-configs", s.requireScopes("route-configs:read")(s.listRouteConfigs))
	s.mux.HandleFunc("GET /api/v1/route-configs/{name}", s.requireScopes("route-configs:read")(s.getRouteConfig))
	s.mux.HandleFunc("PUT /api/v1/route-configs/{name}", s.requireScopes("route-configs:write")(s.updateRouteConfig))
	s.mux.HandleFunc("DELETE /api/v1/route-configs/{name}", s.requireScopes("route-configs:write")(s.deleteRouteConfig))

	s.mux.HandleFunc("POST /api/v1/listeners", s.requireScopes("listeners:write")(s.createListener))
	s.mux.HandleFunc("GET /api/v1/listeners", s.requireScopes("listeners:read")(s.listListeners))
	s.mux.HandleFunc("GET /api/v1/listeners/{name}", s.requireScopes("listeners:read")(s.getListener))
	s.mux.HandleFunc("PUT /api/v1/listeners/{name}", s.requireScopes("listeners:write")(s.updateListener))
	s.mux.HandleFunc("DELETE /api/v1/listeners/{name}", s.requireScopes("listeners:write")(s.deleteListener))

	s.mux.HandleFunc("POST /api/v1/platform/apis", s.requireScopes("apis:write", "route-configs:write", "listeners:write", "clusters:write")(s.createApiDefinition))
	s.mux.HandleFunc("GET /api/v1/platform/apis", s.requireScopes("apis:read")(s.listApiDefinitions))
	s.mux.HandleFunc("GET /api/v1/platform/apis/{id}", s.requireScopes("apis:read")(s.getApiDefinition))
	s.mux.HandleFunc("PUT /api/v1/platform/apis/{id}", s.requireScopes("apis:write", "route-configs:write", "listeners:write", "clusters:write")(s.updateApiDefinition))
	s.mux.HandleFunc("DELETE /api/v1/platform/apis/{id}", s.requireScopes("apis:write")(s.deleteApiDefinition))

	s.mux.HandleFunc("POST /api/v1/platform/services", s.requireScopes("services:write")(s.createServiceDefinition))
	s.mux.HandleFunc("GET /api/v1/platform/services", s.requireScopes("services:read")(s.listServiceDefinitions))
	s.mux.HandleFunc("GET /api/v1/platform/services/{name}", s.requireScopes("services:read")(s.getServiceDefinition))
	s.mux.HandleFunc("PUT /api/v1/platform/services/{name}", s.requireScopes("services:write")(s.updateServiceDefinition))
	s.mux.HandleFunc("DELETE /api/v1/platform/services/{name}", s.requireScopes("services:write")(s.deleteServiceDefinition))

	s.mux.HandleFunc("POST /api/v1/platform/import/openapi", s.requireScopes("apis:write", "import:write")(s.importOpenAPI))
	s.mux.HandleFunc("POST /api/v1/gateways/openapi", s.requireScopes("gateways:import")(s.redirectLegacyOpenAPIImport))

	s.mux.HandleFunc("POST /api/v1/tokens", s.requireScopes("tokens:write")(s.createToken))
	s.mux.HandleFunc("GET /api/v1/tokens", s.requireScopes("tokens:read")(s.listTokens))
	s.mux.HandleFunc("GET /api/v1/tokens/{id}", s.requireScopes("tokens:read")(s.getToken))
	s.mux.HandleFunc("PATCH /api/v1/tokens/{id}", s.requireScopes("tokens:write")(s.updateToken))
	s.mux.HandleFunc("DELETE /api/v1/tokens/{id}", s.requireScopes("tokens:write")(s.revokeToken))
	s.mux.HandleFunc("POST /api/v1/tokens/{id}/rotate", s.requireScopes("tokens:write")(s.rotateToken))
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.logger, http.StatusOK, map[string]string{"status": "healthy"})
}

// Start runs the HTTP server until Stop is called or ListenAndServe fails.
func (s *APIServer) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.mux,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}

	s.logger.WithFields(map[string]interface{}{"port": s.port}).Info("starting flowplane API server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("start API server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping flowplane API server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
