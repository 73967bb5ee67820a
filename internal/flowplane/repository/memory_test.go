package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowplane/flowplane/internal/flowplane/model"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
)

func newClusterStore() *repository.MemoryStore[model.Cluster] {
	return repository.NewMemoryStore[model.Cluster](repository.NoSummary[model.Cluster])
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := newClusterStore()
	ctx := context.Background()

	cluster := model.Cluster{Name: "payments-cluster", LBPolicy: model.LBRoundRobin}
	record, err := store.Create(ctx, cluster.Name, cluster)
	require.NoError(t, err)
	assert.Equal(t, 1, record.Version)
	assert.Equal(t, "payments-cluster", record.Name)

	fetched, err := store.GetByName(ctx, "payments-cluster")
	require.NoError(t, err)
	assert.Equal(t, record.ID, fetched.ID)
}

func TestMemoryStore_CreateDuplicateName(t *testing.T) {
	store := newClusterStore()
	ctx := context.Background()

	cluster := model.Cluster{Name: "dup", LBPolicy: model.LBRoundRobin}
	_, err := store.Create(ctx, cluster.Name, cluster)
	require.NoError(t, err)

	_, err = store.Create(ctx, cluster.Name, cluster)
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestMemoryStore_GetByNameNotFound(t *testing.T) {
	store := newClusterStore()
	_, err := store.GetByName(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryStore_UpdateBumpsVersion(t *testing.T) {
	store := newClusterStore()
	ctx := context.Background()

	cluster := model.Cluster{Name: "svc", LBPolicy: model.LBRoundRobin}
	created, err := store.Create(ctx, cluster.Name, cluster)
	require.NoError(t, err)

	cluster.LBPolicy = model.LBLeastRequest
	updated, err := store.Update(ctx, created.ID, cluster)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, created.ID, updated.ID)

	fetched, err := store.GetByName(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, model.LBLeastRequest, fetched.Entity.LBPolicy)
}

func TestMemoryStore_UpdateNotFound(t *testing.T) {
	store := newClusterStore()
	_, err := store.Update(context.Background(), "nonexistent-id", model.Cluster{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryStore_DeleteRemovesAllVersions(t *testing.T) {
	store := newClusterStore()
	ctx := context.Background()

	cluster := model.Cluster{Name: "to-delete", LBPolicy: model.LBRoundRobin}
	created, err := store.Create(ctx, cluster.Name, cluster)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, created.ID))

	_, err = store.GetByName(ctx, "to-delete")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryStore_ListIsSortedByNameAndPaginated(t *testing.T) {
	store := newClusterStore()
	ctx := context.Background()

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		_, err := store.Create(ctx, name, model.Cluster{Name: name, LBPolicy: model.LBRoundRobin})
		require.NoError(t, err)
	}

	all, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, []string{all[0].Name, all[1].Name, all[2].Name})

	page, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bravo", page[0].Name)
}

func TestMemoryAuditLog_Record(t *testing.T) {
	log := repository.NewMemoryAuditLog()
	err := log.Record(context.Background(), repository.AuditEntry{
		ResourceType: "cluster",
		ResourceID:   "id-1",
		ResourceName: "payments-cluster",
		Action:       repository.AuditActionCreate,
	})
	require.NoError(t, err)
}
