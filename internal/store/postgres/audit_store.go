package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

const defaultAuditListLimit = 100

// AuditStore implements store.AuditStore using PostgreSQL. Records are only ever inserted.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new PostgreSQL-backed audit store.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{
		pool: pool,
	}
}

// Append inserts one audit record.
func (s *AuditStore) Append(ctx context.Context, r *models.AuditRecord) error {
	details, err := marshalMap(r.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_log (record_id, actor_id, action, target_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := s.pool.Exec(ctx, query, r.RecordID, r.ActorID, r.Action, r.TargetID, details, r.CreatedAt); err != nil {
		return fmt.Errorf("failed to append audit record: %w", mapPostgresError(err))
	}
	return nil
}

// List returns records matching opts, newest first.
func (s *AuditStore) List(ctx context.Context, opts store.ListAuditOptions) ([]*models.AuditRecord, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if opts.ActorID != nil {
		add("actor_id = $%d", *opts.ActorID)
	}
	if opts.TargetID != nil {
		add("target_id = $%d", *opts.TargetID)
	}
	if opts.Action != "" {
		add("action = $%d", opts.Action)
	}
	if !opts.Since.IsZero() {
		add("created_at >= $%d", opts.Since)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultAuditListLimit
	}

	query := `SELECT record_id, actor_id, action, target_id, details, created_at FROM audit_log`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC, record_id DESC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", mapPostgresError(err))
	}
	defer rows.Close()

	records := []*models.AuditRecord{}
	for rows.Next() {
		var (
			r       models.AuditRecord
			details []byte
		)
		if err := rows.Scan(&r.RecordID, &r.ActorID, &r.Action, &r.TargetID, &details, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		if err := json.Unmarshal(details, &r.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit details: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit records: %w", err)
	}

	return records, nil
}
