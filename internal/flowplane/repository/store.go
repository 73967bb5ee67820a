package repository

import (
	"context"
	"time"
)

// Record wraps a stored entity with the versioning and summary columns every
// canonical/Platform table carries per §3/§4.B.
type Record[T any] struct {
	ID             string
	Name           string
	PathPrefix     string
	ClusterTargets string
	Entity         T
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Summarizer computes the derived summary columns from an entity's canonical
// form. Most entity types have no meaningful summary and return empty
// strings; RouteConfiguration is the one §4.C names explicitly.
type Summarizer[T any] func(entity T) (pathPrefix, clusterTargets string)

// Store is the common shape of every versioned repository: create, list the
// latest version per name, fetch the latest version by name, append a new
// version by id, and remove every version by id.
//
// List(limit, offset) is for paginated API listings: limit<=0 means
// unlimited on every backend (no backend truncates silently). Callers that
// need the entire repository, not a page of it — the xDS refresh path in
// particular — should call ListAll instead of leaning on a limit<=0
// sentinel, so that intent is explicit at the call site.
type Store[T any] interface {
	Create(ctx context.Context, name string, entity T) (*Record[T], error)
	List(ctx context.Context, limit, offset int) ([]*Record[T], error)
	ListAll(ctx context.Context) ([]*Record[T], error)
	GetByName(ctx context.Context, name string) (*Record[T], error)
	Update(ctx context.Context, id string, entity T) (*Record[T], error)
	Delete(ctx context.Context, id string) error
}

// NoSummary is used for entity types §4.C does not define summary columns
// for (Cluster, Listener, and every Platform entity).
func NoSummary[T any](T) (string, string) { return "", "" }
