package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// AuditStore is an append-only log of privileged actions.
type AuditStore interface {
	// Append stores a record. Records are never updated or deleted.
	Append(ctx context.Context, record *models.AuditRecord) error

	// List returns records matching the filter, newest first.
	List(ctx context.Context, opts ListAuditOptions) ([]*models.AuditRecord, error)
}

// ListAuditOptions specifies filters for listing audit records
type ListAuditOptions struct {
	ActorID  *uuid.UUID // Filter by actor (nil = all)
	TargetID *uuid.UUID // Filter by target (nil = all)
	Action   string     // Filter by action tag (empty = all)
	Since    time.Time  // Only records at or after this time (zero = all)
	Limit    int        // Max results (0 = default 100)
}
