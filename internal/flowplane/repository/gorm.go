package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormRow is the physical shape of every versioned table: clusters, routes,
// listeners, platform_api_definitions, platform_service_definitions,
// personal_access_tokens. Table
// name is supplied per GormStore instance via db.Table(...).
type gormRow struct {
	ID             string `gorm:"column:id"`
	Name           string `gorm:"column:name"`
	PathPrefix     string `gorm:"column:path_prefix"`
	ClusterTargets string `gorm:"column:cluster_targets"`
	Configuration  string `gorm:"column:configuration"`
	Version        int    `gorm:"column:version"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

// GormStore is the SQL-backed Store, keeping the full version history of
// every row per §6's persisted-state table.
type GormStore[T any] struct {
	db        *gorm.DB
	table     string
	summarize Summarizer[T]
}

// NewGormStore binds a Store to a single physical table via db.Table(table).
func NewGormStore[T any](db *gorm.DB, table string, summarize Summarizer[T]) *GormStore[T] {
	return &GormStore[T]{db: db, table: table, summarize: summarize}
}

// Create persists a new row, failing with ErrAlreadyExists if name is
// already taken. The existence check and the insert run inside one
// transaction behind a Postgres advisory lock scoped to table+name: without
// it, two concurrent callers can both run the Count query before either has
// inserted, observe count=0, and both succeed, which a plain transaction
// (no locking read) does nothing to prevent since a fresh name has no row
// for a SELECT ... FOR UPDATE to hold onto. The advisory lock is
// transaction-scoped (pg_advisory_xact_lock) so it releases automatically
// on commit or rollback; MemoryStore.Create gets the same guarantee from a
// single mutex around its whole check-then-insert.
func (s *GormStore[T]) Create(ctx context.Context, name string, entity T) (*Record[T], error) {
	configuration, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}

	pathPrefix, clusterTargets := s.summarize(entity)
	now := time.Now().UTC()
	row := gormRow{
		ID:             uuid.NewString(),
		Name:           name,
		PathPrefix:     pathPrefix,
		ClusterTargets: clusterTargets,
		Configuration:  string(configuration),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", s.table+"/"+name).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Table(s.table).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyExists
		}

		return tx.Table(s.table).Create(&row).Error
	})
	if errors.Is(txErr, ErrAlreadyExists) {
		return nil, ErrAlreadyExists
	}
	if txErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, txErr)
	}

	return toRecord[T](row, entity), nil
}

// List returns at most limit rows starting at offset, ordered by name. A
// limit<=0 means unlimited, matching MemoryStore.List so that neither
// backend silently truncates a result set.
func (s *GormStore[T]) List(ctx context.Context, limit, offset int) ([]*Record[T], error) {
	var rows []gormRow
	query := `
		SELECT DISTINCT ON (name) id, name, path_prefix, cluster_targets, configuration, version, created_at, updated_at
		FROM ` + s.table + `
		ORDER BY name, version DESC
	`
	if err := s.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	if offset > 0 {
		if offset >= len(rows) {
			return nil, nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	out := make([]*Record[T], 0, len(rows))
	for _, row := range rows {
		record, err := unmarshalRow[T](row)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

// ListAll returns every row regardless of any pagination concern.
func (s *GormStore[T]) ListAll(ctx context.Context) ([]*Record[T], error) {
	return s.List(ctx, 0, 0)
}

func (s *GormStore[T]) GetByName(ctx context.Context, name string) (*Record[T], error) {
	var row gormRow
	err := s.db.WithContext(ctx).Table(s.table).
		Where("name = ?", name).
		Order("version DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return unmarshalRow[T](row)
}

func (s *GormStore[T]) Update(ctx context.Context, id string, entity T) (*Record[T], error) {
	var prev gormRow
	err := s.db.WithContext(ctx).Table(s.table).
		Where("id = ?", id).
		Order("version DESC").
		First(&prev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	configuration, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}

	pathPrefix, clusterTargets := s.summarize(entity)
	row := gormRow{
		ID:             prev.ID,
		Name:           prev.Name,
		PathPrefix:     pathPrefix,
		ClusterTargets: clusterTargets,
		Configuration:  string(configuration),
		Version:        prev.Version + 1,
		CreatedAt:      prev.CreatedAt,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Table(s.table).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	return toRecord[T](row, entity), nil
}

func (s *GormStore[T]) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Table(s.table).Where("id = ?", id).Delete(&gormRow{})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func unmarshalRow[T any](row gormRow) (*Record[T], error) {
	var entity T
	if err := json.Unmarshal([]byte(row.Configuration), &entity); err != nil {
		return nil, fmt.Errorf("unmarshal entity: %w", err)
	}
	return toRecord[T](row, entity), nil
}

func toRecord[T any](row gormRow, entity T) *Record[T] {
	return &Record[T]{
		ID:             row.ID,
		Name:           row.Name,
		PathPrefix:     row.PathPrefix,
		ClusterTargets: row.ClusterTargets,
		Entity:         entity,
		Version:        row.Version,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
