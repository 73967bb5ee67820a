package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction enumerates the actions recorded against a resource per §6.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionRotate AuditAction = "rotate"
	AuditActionRevoke AuditAction = "revoke"
)

// AuditEntry is one row of the audit_log table: resource identity, the
// action taken, before/after canonical JSON, and the acting token.
type AuditEntry struct {
	ID               string
	ResourceType     string
	ResourceID       string
	ResourceName     string
	Action           AuditAction
	OldConfiguration string
	NewConfiguration string
	ActorTokenID     string
	CreatedAt        time.Time
}

type auditRow struct {
	ID               string    `gorm:"column:id"`
	ResourceType     string    `gorm:"column:resource_type"`
	ResourceID       string    `gorm:"column:resource_id"`
	ResourceName     string    `gorm:"column:resource_name"`
	Action           string    `gorm:"column:action"`
	OldConfiguration string    `gorm:"column:old_configuration"`
	NewConfiguration string    `gorm:"column:new_configuration"`
	ActorTokenID     string    `gorm:"column:actor_token_id"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (auditRow) TableName() string { return "audit_log" }

// AuditLog appends audit entries. Writes happen in the same request as the
// primary mutation, through the same GORM session, per SPEC_FULL's
// supplemented audit-logging requirement.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// GormAuditLog is the SQL-backed AuditLog.
type GormAuditLog struct {
	db *gorm.DB
}

func NewGormAuditLog(db *gorm.DB) *GormAuditLog {
	return &GormAuditLog{db: db}
}

func (l *GormAuditLog) Record(ctx context.Context, entry AuditEntry) error {
	row := auditRow{
		ID:               uuid.NewString(),
		ResourceType:     entry.ResourceType,
		ResourceID:       entry.ResourceID,
		ResourceName:     entry.ResourceName,
		Action:           string(entry.Action),
		OldConfiguration: entry.OldConfiguration,
		NewConfiguration: entry.NewConfiguration,
		ActorTokenID:     entry.ActorTokenID,
		CreatedAt:        time.Now().UTC(),
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// MemoryAuditLog is the in-memory AuditLog used alongside MemoryStore.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns every recorded entry, oldest first. Test-only accessor.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
