package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/flowplane/flowplane/internal/flowplane/auth"
	"github.com/flowplane/flowplane/internal/flowplane/config"
	"github.com/flowplane/flowplane/internal/flowplane/model"
	"github.com/flowplane/flowplane/internal/flowplane/platform"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
	apiServer "github.com/flowplane/flowplane/internal/flowplane/server"
	"github.com/flowplane/flowplane/internal/flowplane/xds/cache"
	xdsServer "github.com/flowplane/flowplane/internal/flowplane/xds/server"
	"github.com/flowplane/flowplane/pkg/logger"
)

// defaultRouteConfigName is the system-owned RouteConfiguration that the
// Native delete endpoint refuses to remove (spec §3).
const defaultRouteConfigName = "default-gateway"

func main() {
	log := logger.NewDefaultEnvoyLogger()
	log.Info("starting flowplane control plane")

	cfg, err := config.Load("")
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	log = newLoggerFromConfig(cfg)

	clusters, routes, listeners, apiDefs, serviceDefs, tokens, audit, closeDB := newStores(cfg, log)
	if closeDB != nil {
		defer closeDB()
	}

	seedDefaultRouteConfig(context.Background(), clusters, routes, log)

	if cfg.Auth.BootstrapToken != "" {
		seedBootstrapToken(context.Background(), tokens, cfg, log)
	}

	xds := xdsServer.New(cfg.Server.XDSPort, log)
	manager := cache.NewManager(xds.Cache(), xds.Logger(), cfg.XDS.DefaultNodeID, clusters, routes, listeners)

	if err := manager.RefreshAll(context.Background()); err != nil {
		log.WithError(err).Fatal("failed to build initial xds snapshot")
	}

	rest := apiServer.NewAPIServer(apiServer.Deps{
		Clusters:               clusters,
		Routes:                 routes,
		Listeners:              listeners,
		ApiDefinitions:         apiDefs,
		ServiceDefinitions:     serviceDefs,
		Tokens:                 auth.NewService(tokens),
		Audit:                  audit,
		XDS:                    manager,
		DefaultRouteConfigName: defaultRouteConfigName,
		Logger:                 log,
		Port:                   cfg.Server.APIPort,
		ReadTimeout:            cfg.GetServerReadTimeout(),
		WriteTimeout:           cfg.GetServerWriteTimeout(),
		IdleTimeout:            cfg.GetServerIdleTimeout(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal")
		cancel()
	}()

	go func() {
		if err := xds.Start(); err != nil {
			log.WithError(err).Fatal("failed to start xds server")
		}
	}()

	go func() {
		if err := rest.Start(); err != nil {
			log.WithError(err).Fatal("failed to start rest api server")
		}
	}()

	time.Sleep(100 * time.Millisecond)
	log.WithFields(map[string]interface{}{
		"api_port": cfg.Server.APIPort,
		"xds_port": cfg.Server.XDSPort,
		"node_id":  cfg.XDS.DefaultNodeID,
	}).Info("flowplane control plane started")

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer shutdownCancel()

	if err := rest.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("failed to gracefully stop rest api server")
	}
	xds.Stop()
	log.Info("flowplane control plane shutdown complete")
}

func newLoggerFromConfig(cfg *config.Config) *logger.EnvoyLogger {
	level := logger.InfoLevel
	switch cfg.Logging.Level {
	case "debug":
		level = logger.DebugLevel
	case "warn":
		level = logger.WarnLevel
	case "error":
		level = logger.ErrorLevel
	}
	if cfg.Logging.Format == "text" {
		return logger.NewTextLogger(level)
	}
	return logger.NewJSONLogger(level)
}

// newStores wires either the GormStore/GormAuditLog backends (when a
// Postgres DSN is configured and reachable) or the in-memory equivalents,
// per the repository layer's dual-backend design (spec §4.B).
func newStores(cfg *config.Config, log *logger.EnvoyLogger) (
	clusters repository.Store[model.Cluster],
	routes repository.Store[model.RouteConfiguration],
	listeners repository.Store[model.Listener],
	apiDefs repository.Store[platform.ApiDefinition],
	serviceDefs repository.Store[platform.ServiceDefinition],
	tokens repository.Store[auth.PersonalAccessToken],
	audit repository.AuditLog,
	closeDB func(),
) {
	if cfg.Database.DSN == "" {
		log.Warn("no database dsn configured, using in-memory stores")
		return newMemoryStores()
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		log.WithError(err).Warn("failed to connect to database, falling back to in-memory stores")
		return newMemoryStores()
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Warn("failed to obtain sql.DB handle, falling back to in-memory stores")
		return newMemoryStores()
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxConnections)

	clusters = repository.NewGormStore[model.Cluster](db, "clusters", repository.NoSummary[model.Cluster])
	routes = repository.NewGormStore[model.RouteConfiguration](db, "routes", model.SummarizeRouteConfiguration)
	listeners = repository.NewGormStore[model.Listener](db, "listeners", repository.NoSummary[model.Listener])
	apiDefs = repository.NewGormStore[platform.ApiDefinition](db, "platform_api_definitions", repository.NoSummary[platform.ApiDefinition])
	serviceDefs = repository.NewGormStore[platform.ServiceDefinition](db, "platform_service_definitions", repository.NoSummary[platform.ServiceDefinition])
	tokens = repository.NewGormStore[auth.PersonalAccessToken](db, "personal_access_tokens", auth.Summarize)
	audit = repository.NewGormAuditLog(db)
	closeDB = func() { _ = sqlDB.Close() }
	return
}

func newMemoryStores() (
	repository.Store[model.Cluster],
	repository.Store[model.RouteConfiguration],
	repository.Store[model.Listener],
	repository.Store[platform.ApiDefinition],
	repository.Store[platform.ServiceDefinition],
	repository.Store[auth.PersonalAccessToken],
	repository.AuditLog,
	func(),
) {
	return repository.NewMemoryStore[model.Cluster](repository.NoSummary[model.Cluster]),
		repository.NewMemoryStore[model.RouteConfiguration](model.SummarizeRouteConfiguration),
		repository.NewMemoryStore[model.Listener](repository.NoSummary[model.Listener]),
		repository.NewMemoryStore[platform.ApiDefinition](repository.NoSummary[platform.ApiDefinition]),
		repository.NewMemoryStore[platform.ServiceDefinition](repository.NoSummary[platform.ServiceDefinition]),
		repository.NewMemoryStore[auth.PersonalAccessToken](auth.Summarize),
		repository.NewMemoryAuditLog(),
		nil
}

// seedDefaultRouteConfig ensures the system-owned default gateway route
// configuration and its backing cluster exist on a fresh store, so the
// delete-protection check in the route-configs handler always has a real
// row to protect.
func seedDefaultRouteConfig(ctx context.Context, clusters repository.Store[model.Cluster], routes repository.Store[model.RouteConfiguration], log *logger.EnvoyLogger) {
	if _, err := routes.GetByName(ctx, defaultRouteConfigName); err == nil {
		return
	}

	cluster := model.Cluster{
		Name:        "default-gateway-cluster",
		ServiceName: "default-gateway-cluster",
		Endpoints:   []model.Endpoint{{Host: "127.0.0.1", Port: 19000}},
		LBPolicy:    model.LBRoundRobin,
	}
	if _, err := clusters.Create(ctx, cluster.Name, cluster); err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		log.WithError(err).Warn("failed seeding default gateway cluster")
		return
	}

	routeConfig := model.RouteConfiguration{
		Name: defaultRouteConfigName,
		VirtualHosts: []model.VirtualHost{{
			Name:    "default",
			Domains: []string{"*"},
			Routes: []model.RouteRule{{
				Match:  model.RouteMatch{Path: model.PathMatch{Type: model.PathMatchPrefix, Value: "/"}},
				Action: model.RouteAction{Type: model.RouteActionForward, Cluster: cluster.Name},
			}},
		}},
	}
	if _, err := routes.Create(ctx, routeConfig.Name, routeConfig); err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		log.WithError(err).Warn("failed seeding default gateway route configuration")
	}
}

// seedBootstrapToken ensures a PersonalAccessToken with the configured
// secret exists so an operator always has a way into a fresh deployment.
func seedBootstrapToken(ctx context.Context, tokens repository.Store[auth.PersonalAccessToken], cfg *config.Config, log *logger.EnvoyLogger) {
	if _, err := tokens.GetByName(ctx, "bootstrap"); err == nil {
		return
	}

	hash, err := auth.HashSecret(cfg.Auth.BootstrapToken)
	if err != nil {
		log.WithError(err).Warn("failed hashing bootstrap token")
		return
	}

	token := auth.PersonalAccessToken{
		Name:      "bootstrap",
		TokenHash: hash,
		Status:    auth.StatusActive,
		Scopes:    cfg.Auth.DefaultScopes,
	}
	if _, err := tokens.Create(ctx, token.Name, token); err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		log.WithError(err).Warn("failed seeding bootstrap token")
	}
}
