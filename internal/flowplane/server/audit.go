package server

import (
	"context"
	"encoding/json"

	"github.com/flowplane/flowplane/internal/flowplane/repository"
)

// recordAudit appends one audit_log row for a mutating request (spec §6).
// Marshal failures degrade to an empty JSON snapshot rather than failing the
// request: the audit trail is best-effort relative to the primary write.
func (s *APIServer) recordAudit(ctx context.Context, resourceType, resourceID, resourceName string, action repository.AuditAction, oldEntity, newEntity interface{}) {
	oldJSON, _ := json.Marshal(oldEntity)
	newJSON, _ := json.Marshal(newEntity)

	actorTokenID := ""
	if ac := authContextFrom(ctx); ac != nil {
		actorTokenID = ac.TokenID
	}

	entry := repository.AuditEntry{
		ResourceType:     resourceType,
		ResourceID:       resourceID,
		ResourceName:     resourceName,
		Action:           action,
		OldConfiguration: string(oldJSON),
		NewConfiguration: string(newJSON),
		ActorTokenID:     actorTokenID,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.WithError(err).Warn("failed to record audit entry")
	}
}
