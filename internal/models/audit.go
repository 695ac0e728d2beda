package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord is an immutable log entry for one privileged action.
type AuditRecord struct {
	RecordID  uuid.UUID
	ActorID   uuid.UUID
	Action    string
	TargetID  *uuid.UUID
	Details   map[string]any
	CreatedAt time.Time
}
