package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a thread-safe in-memory Store, keeping every version of
// every row the way the SQL-backed store does. It is a first-class backend
// (not just a test double): it needs no database to exercise the full
// create/list/get/update/delete contract.
type MemoryStore[T any] struct {
	mu        sync.RWMutex
	versions  map[string][]*Record[T] // keyed by name, oldest first
	summarize Summarizer[T]
}

// NewMemoryStore constructs an empty MemoryStore using summarize to compute
// the derived pathPrefix/clusterTargets columns on every write.
func NewMemoryStore[T any](summarize Summarizer[T]) *MemoryStore[T] {
	return &MemoryStore[T]{
		versions:  make(map[string][]*Record[T]),
		summarize: summarize,
	}
}

func (s *MemoryStore[T]) Create(_ context.Context, name string, entity T) (*Record[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.versions[name]; exists {
		return nil, ErrAlreadyExists
	}

	pathPrefix, clusterTargets := s.summarize(entity)
	now := time.Now().UTC()
	record := &Record[T]{
		ID:             uuid.NewString(),
		Name:           name,
		PathPrefix:     pathPrefix,
		ClusterTargets: clusterTargets,
		Entity:         entity,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.versions[name] = []*Record[T]{record}
	return cloneRecord(record), nil
}

func (s *MemoryStore[T]) List(_ context.Context, limit, offset int) ([]*Record[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Record[T], 0, len(names))
	for _, name := range names {
		out = append(out, cloneRecord(latest(s.versions[name])))
	}

	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// ListAll returns every row regardless of any pagination concern.
func (s *MemoryStore[T]) ListAll(ctx context.Context) ([]*Record[T], error) {
	return s.List(ctx, 0, 0)
}

func (s *MemoryStore[T]) GetByName(_ context.Context, name string) (*Record[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.versions[name]
	if !ok || len(rows) == 0 {
		return nil, ErrNotFound
	}
	return cloneRecord(latest(rows)), nil
}

func (s *MemoryStore[T]) Update(_ context.Context, id string, entity T) (*Record[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, rows := s.findByID(id)
	if rows == nil {
		return nil, ErrNotFound
	}

	prev := latest(rows)
	pathPrefix, clusterTargets := s.summarize(entity)
	record := &Record[T]{
		ID:             prev.ID,
		Name:           name,
		PathPrefix:     pathPrefix,
		ClusterTargets: clusterTargets,
		Entity:         entity,
		Version:        prev.Version + 1,
		CreatedAt:      prev.CreatedAt,
		UpdatedAt:      time.Now().UTC(),
	}
	s.versions[name] = append(rows, record)
	return cloneRecord(record), nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, rows := s.findByID(id)
	if rows == nil {
		return ErrNotFound
	}
	delete(s.versions, name)
	return nil
}

func (s *MemoryStore[T]) findByID(id string) (string, []*Record[T]) {
	for name, rows := range s.versions {
		if len(rows) > 0 && rows[0].ID == id {
			return name, rows
		}
	}
	return "", nil
}

func latest[T any](rows []*Record[T]) *Record[T] {
	return rows[len(rows)-1]
}

func cloneRecord[T any](r *Record[T]) *Record[T] {
	clone := *r
	return &clone
}
