// Package cache rebuilds the xDS snapshot served to connected proxies from
// the repository, the source of truth, per §4.G's refresh contract.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/envoyproxy/go-control-plane/pkg/cache/types"
	cachev3 "github.com/envoyproxy/go-control-plane/pkg/cache/v3"
	resourcev3 "github.com/envoyproxy/go-control-plane/pkg/resource/v3"

	"github.com/flowplane/flowplane/internal/flowplane/model"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
	"github.com/flowplane/flowplane/internal/flowplane/xds/resources/cluster"
	"github.com/flowplane/flowplane/internal/flowplane/xds/resources/listener"
	"github.com/flowplane/flowplane/internal/flowplane/xds/resources/route"
	"github.com/flowplane/flowplane/pkg/logger"
)

// Manager rebuilds and publishes xDS snapshots for a single node ID. Writes
// to the snapshot are serialized by mu per §5: two concurrent refreshes must
// not interleave, the simplest discipline being a single mutex.
type Manager struct {
	mu     sync.Mutex
	cache  cachev3.SnapshotCache
	logger *logger.EnvoyLogger
	nodeID string

	clusters  repository.Store[model.Cluster]
	routes    repository.Store[model.RouteConfiguration]
	listeners repository.Store[model.Listener]

	version int
}

// NewManager builds a Manager bound to a single xDS node ID, the
// repositories it reads from, and the SnapshotCache it publishes to.
func NewManager(
	cache cachev3.SnapshotCache,
	log *logger.EnvoyLogger,
	nodeID string,
	clusters repository.Store[model.Cluster],
	routes repository.Store[model.RouteConfiguration],
	listeners repository.Store[model.Listener],
) *Manager {
	return &Manager{
		cache:     cache,
		logger:    log,
		nodeID:    nodeID,
		clusters:  clusters,
		routes:    routes,
		listeners: listeners,
	}
}

// RefreshClusters rebuilds the snapshot's Cluster resources from the
// repository, leaving routes and listeners as currently published.
func (m *Manager) RefreshClusters(ctx context.Context) error {
	return m.refresh(ctx, refreshClusters)
}

// RefreshRoutes rebuilds the snapshot's RouteConfiguration resources.
func (m *Manager) RefreshRoutes(ctx context.Context) error {
	return m.refresh(ctx, refreshRoutes)
}

// RefreshListeners rebuilds the snapshot's Listener resources.
func (m *Manager) RefreshListeners(ctx context.Context) error {
	return m.refresh(ctx, refreshListeners)
}

// RefreshAll rebuilds every resource class in one pass. The Platform surface
// uses this since a single Platform write can touch clusters, routes, and
// listeners at once.
func (m *Manager) RefreshAll(ctx context.Context) error {
	return m.refresh(ctx, refreshClusters|refreshRoutes|refreshListeners)
}

type refreshSet uint8

const (
	refreshClusters refreshSet = 1 << iota
	refreshRoutes
	refreshListeners
)

// refresh reads the requested resource classes from the repository, builds a
// brand new snapshot (carrying over any resource class not requested from
// the previously published snapshot), and publishes it. A full rebuild
// rather than an incremental patch keeps the snapshot always consistent with
// whatever the repository currently holds, including deletes.
func (m *Manager) refresh(ctx context.Context, want refreshSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, _ := m.currentSnapshot()

	resources := map[resourcev3.Type][]types.Resource{}

	if want&refreshClusters != 0 {
		built, err := m.buildClusters(ctx)
		if err != nil {
			return fmt.Errorf("refresh clusters: %w", err)
		}
		resources[resourcev3.ClusterType] = built
	} else {
		resources[resourcev3.ClusterType] = carryOver(current, resourcev3.ClusterType)
	}

	if want&refreshRoutes != 0 {
		built, err := m.buildRoutes(ctx)
		if err != nil {
			return fmt.Errorf("refresh routes: %w", err)
		}
		resources[resourcev3.RouteType] = built
	} else {
		resources[resourcev3.RouteType] = carryOver(current, resourcev3.RouteType)
	}

	if want&refreshListeners != 0 {
		built, err := m.buildListeners(ctx)
		if err != nil {
			return fmt.Errorf("refresh listeners: %w", err)
		}
		resources[resourcev3.ListenerType] = built
	} else {
		resources[resourcev3.ListenerType] = carryOver(current, resourcev3.ListenerType)
	}

	resources[resourcev3.EndpointType] = carryOver(current, resourcev3.EndpointType)

	m.version++
	snapshot, err := cachev3.NewSnapshot(fmt.Sprintf("v%d", m.version), resources)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}
	if err := snapshot.Consistent(); err != nil {
		return fmt.Errorf("snapshot inconsistent: %w", err)
	}

	if err := m.cache.SetSnapshot(ctx, m.nodeID, snapshot); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	m.logger.Infof("published snapshot version %d for node %s", m.version, m.nodeID)
	return nil
}

func (m *Manager) currentSnapshot() (*cachev3.Snapshot, bool) {
	raw, err := m.cache.GetSnapshot(m.nodeID)
	if err != nil {
		return nil, false
	}
	snapshot, ok := raw.(*cachev3.Snapshot)
	return snapshot, ok
}

func carryOver(snapshot *cachev3.Snapshot, typ resourcev3.Type) []types.Resource {
	if snapshot == nil {
		return []types.Resource{}
	}
	existing := snapshot.GetResources(typ)
	out := make([]types.Resource, 0, len(existing))
	for _, res := range existing {
		out = append(out, res)
	}
	return out
}

func (m *Manager) buildClusters(ctx context.Context) ([]types.Resource, error) {
	records, err := m.clusters.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Resource, 0, len(records))
	for _, rec := range records {
		entity := rec.Entity
		wire, err := cluster.ToWire(&entity)
		if err != nil {
			return nil, fmt.Errorf("cluster %q: %w", rec.Name, err)
		}
		out = append(out, wire)
	}
	return out, nil
}

func (m *Manager) buildRoutes(ctx context.Context) ([]types.Resource, error) {
	records, err := m.routes.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Resource, 0, len(records))
	for _, rec := range records {
		entity := rec.Entity
		wire, err := route.ToWire(&entity)
		if err != nil {
			return nil, fmt.Errorf("route config %q: %w", rec.Name, err)
		}
		out = append(out, wire)
	}
	return out, nil
}

func (m *Manager) buildListeners(ctx context.Context) ([]types.Resource, error) {
	records, err := m.listeners.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Resource, 0, len(records))
	for _, rec := range records {
		entity := rec.Entity
		wire, err := listener.ToWire(&entity)
		if err != nil {
			return nil, fmt.Errorf("listener %q: %w", rec.Name, err)
		}
		out = append(out, wire)
	}
	return out, nil
}
