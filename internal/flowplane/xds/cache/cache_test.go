package cache

import (
	"context"
	"testing"

	cachev3 "github.com/envoyproxy/go-control-plane/pkg/cache/v3"
	resourcev3 "github.com/envoyproxy/go-control-plane/pkg/resource/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowplane/flowplane/internal/flowplane/model"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
	"github.com/flowplane/flowplane/pkg/logger"
)

const testNodeID = "test-node"

func newTestManager() (*Manager, repository.Store[model.Cluster], repository.Store[model.RouteConfiguration], repository.Store[model.Listener]) {
	snapshotCache := cachev3.NewSnapshotCache(true, cachev3.IDHash{}, nil)
	log := logger.NewJSONLogger(logger.ErrorLevel)

	clusters := repository.NewMemoryStore[model.Cluster](repository.NoSummary[model.Cluster])
	routes := repository.NewMemoryStore[model.RouteConfiguration](model.SummarizeRouteConfiguration)
	listeners := repository.NewMemoryStore[model.Listener](repository.NoSummary[model.Listener])

	mgr := NewManager(snapshotCache, log, testNodeID, clusters, routes, listeners)
	return mgr, clusters, routes, listeners
}

func TestRefreshClusters_PublishesSnapshot(t *testing.T) {
	mgr, clusters, _, _ := newTestManager()
	ctx := context.Background()

	_, err := clusters.Create(ctx, "payments-cluster", model.Cluster{
		Name:        "payments-cluster",
		ServiceName: "payments",
		Endpoints:   []model.Endpoint{{Host: "10.0.0.1", Port: 8080}},
		LBPolicy:    model.LBRoundRobin,
	})
	require.NoError(t, err)

	require.NoError(t, mgr.RefreshClusters(ctx))

	snapshot, ok := mgr.currentSnapshot()
	require.True(t, ok)
	resources := snapshot.GetResources(resourcev3.ClusterType)
	assert.Len(t, resources, 1)
}

func TestRefreshClusters_CarriesOverRoutes(t *testing.T) {
	mgr, clusters, routes, _ := newTestManager()
	ctx := context.Background()

	_, err := routes.Create(ctx, "default-gateway", model.RouteConfiguration{
		Name: "default-gateway",
		VirtualHosts: []model.VirtualHost{{
			Name:    "default",
			Domains: []string{"*"},
			Routes: []model.RouteRule{{
				Match:  model.RouteMatch{Path: model.PathMatch{Type: model.PathMatchPrefix, Value: "/"}},
				Action: model.RouteAction{Type: model.RouteActionForward, Cluster: "payments-cluster"},
			}},
		}},
	})
	require.NoError(t, err)
	require.NoError(t, mgr.RefreshRoutes(ctx))

	_, err = clusters.Create(ctx, "payments-cluster", model.Cluster{
		Name:        "payments-cluster",
		ServiceName: "payments",
		Endpoints:   []model.Endpoint{{Host: "10.0.0.1", Port: 8080}},
		LBPolicy:    model.LBRoundRobin,
	})
	require.NoError(t, err)
	require.NoError(t, mgr.RefreshClusters(ctx))

	snapshot, ok := mgr.currentSnapshot()
	require.True(t, ok)
	assert.Len(t, snapshot.GetResources(resourcev3.ClusterType), 1)
	assert.Len(t, snapshot.GetResources(resourcev3.RouteType), 1)
}

func TestRefreshAll_BuildsEveryClass(t *testing.T) {
	mgr, clusters, routes, listeners := newTestManager()
	ctx := context.Background()

	_, err := clusters.Create(ctx, "payments-cluster", model.Cluster{
		Name:        "payments-cluster",
		ServiceName: "payments",
		Endpoints:   []model.Endpoint{{Host: "10.0.0.1", Port: 8080}},
		LBPolicy:    model.LBRoundRobin,
	})
	require.NoError(t, err)

	_, err = routes.Create(ctx, "default-gateway", model.RouteConfiguration{
		Name: "default-gateway",
		VirtualHosts: []model.VirtualHost{{
			Name:    "default",
			Domains: []string{"*"},
			Routes: []model.RouteRule{{
				Match:  model.RouteMatch{Path: model.PathMatch{Type: model.PathMatchPrefix, Value: "/"}},
				Action: model.RouteAction{Type: model.RouteActionForward, Cluster: "payments-cluster"},
			}},
		}},
	})
	require.NoError(t, err)

	_, err = listeners.Create(ctx, "public-listener", model.Listener{
		Name:            "public-listener",
		Address:         "0.0.0.0",
		Port:            10000,
		RouteConfigName: "default-gateway",
	})
	require.NoError(t, err)

	require.NoError(t, mgr.RefreshAll(ctx))

	snapshot, ok := mgr.currentSnapshot()
	require.True(t, ok)
	assert.Len(t, snapshot.GetResources(resourcev3.ClusterType), 1)
	assert.Len(t, snapshot.GetResources(resourcev3.RouteType), 1)
	assert.Len(t, snapshot.GetResources(resourcev3.ListenerType), 1)
}

func TestRefreshListeners_DanglingRouteReferenceFailsConsistency(t *testing.T) {
	mgr, _, _, listeners := newTestManager()
	ctx := context.Background()

	_, err := listeners.Create(ctx, "public-listener", model.Listener{
		Name:            "public-listener",
		Address:         "0.0.0.0",
		Port:            10000,
		RouteConfigName: "missing-route-config",
	})
	require.NoError(t, err)

	err = mgr.RefreshListeners(ctx)
	assert.Error(t, err)

	_, ok := mgr.currentSnapshot()
	assert.False(t, ok)
}

func TestRefreshClusters_VersionIncrementsOnEachPublish(t *testing.T) {
	mgr, clusters, _, _ := newTestManager()
	ctx := context.Background()

	_, err := clusters.Create(ctx, "payments-cluster", model.Cluster{
		Name:        "payments-cluster",
		ServiceName: "payments",
		Endpoints:   []model.Endpoint{{Host: "10.0.0.1", Port: 8080}},
		LBPolicy:    model.LBRoundRobin,
	})
	require.NoError(t, err)

	require.NoError(t, mgr.RefreshClusters(ctx))
	assert.Equal(t, 1, mgr.version)

	require.NoError(t, mgr.RefreshClusters(ctx))
	assert.Equal(t, 2, mgr.version)
}
