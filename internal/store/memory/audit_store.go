package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

const defaultAuditListLimit = 100

// AuditStore implements store.AuditStore using in-memory storage.
type AuditStore struct {
	mu sync.RWMutex

	records []*models.AuditRecord // append order
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Append stores a record.
func (s *AuditStore) Append(ctx context.Context, record *models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *record
	clone.Details = maps.Clone(record.Details)
	s.records = append(s.records, &clone)
	return nil
}

// List returns records matching the filter, newest first.
func (s *AuditStore) List(ctx context.Context, opts store.ListAuditOptions) ([]*models.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultAuditListLimit
	}

	var result []*models.AuditRecord
	for i := len(s.records) - 1; i >= 0 && len(result) < limit; i-- {
		r := s.records[i]
		if opts.ActorID != nil && r.ActorID != *opts.ActorID {
			continue
		}
		if opts.TargetID != nil && (r.TargetID == nil || *r.TargetID != *opts.TargetID) {
			continue
		}
		if opts.Action != "" && r.Action != opts.Action {
			continue
		}
		if !opts.Since.IsZero() && r.CreatedAt.Before(opts.Since) {
			continue
		}
		clone := *r
		clone.Details = maps.Clone(r.Details)
		result = append(result, &clone)
	}
	return result, nil
}
