package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// InstructionStore implements store.InstructionStore using PostgreSQL.
// The global set is a single row in global_instruction_set.
type InstructionStore struct {
	pool *pgxpool.Pool
}

// NewInstructionStore creates a new PostgreSQL-backed instruction store.
func NewInstructionStore(pool *pgxpool.Pool) *InstructionStore {
	return &InstructionStore{
		pool: pool,
	}
}

// GetGlobal returns the global instruction set.
func (s *InstructionStore) GetGlobal(ctx context.Context) (*models.InstructionSet, error) {
	query := `SELECT overrides, updated_at, updated_by FROM global_instruction_set WHERE singleton`
	return s.scan(s.pool.QueryRow(ctx, query), nil)
}

// UpsertGlobal creates or replaces the global instruction set.
func (s *InstructionStore) UpsertGlobal(ctx context.Context, set *models.InstructionSet) error {
	overrides, err := marshalMap(set.Overrides)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}

	query := `
		INSERT INTO global_instruction_set (singleton, overrides, updated_at, updated_by)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (singleton) DO UPDATE SET
			overrides = EXCLUDED.overrides,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
	`

	if _, err := s.pool.Exec(ctx, query, overrides, set.UpdatedAt, set.UpdatedBy); err != nil {
		return fmt.Errorf("failed to upsert global instructions: %w", mapPostgresError(err))
	}

	log.Debug().Int("keys", len(set.Overrides)).Msg("Upserted global instructions")
	return nil
}

// GetForOrg returns the instruction set of an organization.
func (s *InstructionStore) GetForOrg(ctx context.Context, orgID uuid.UUID) (*models.InstructionSet, error) {
	query := `SELECT overrides, updated_at, updated_by FROM organization_instruction_sets WHERE org_id = $1`
	return s.scan(s.pool.QueryRow(ctx, query, orgID), &orgID)
}

// UpsertForOrg creates or replaces the instruction set of an organization.
func (s *InstructionStore) UpsertForOrg(ctx context.Context, set *models.InstructionSet) error {
	if set.OrgID == nil {
		return fmt.Errorf("organization instruction set requires an org id")
	}

	overrides, err := marshalMap(set.Overrides)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}

	query := `
		INSERT INTO organization_instruction_sets (org_id, overrides, updated_at, updated_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (org_id) DO UPDATE SET
			overrides = EXCLUDED.overrides,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
	`

	if _, err := s.pool.Exec(ctx, query, *set.OrgID, overrides, set.UpdatedAt, set.UpdatedBy); err != nil {
		return fmt.Errorf("failed to upsert organization instructions: %w", mapPostgresError(err))
	}
	return nil
}

// DeleteForOrg removes an organization's instruction set and reports whether it existed.
func (s *InstructionStore) DeleteForOrg(ctx context.Context, orgID uuid.UUID) (bool, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM organization_instruction_sets WHERE org_id = $1`, orgID)
	if err != nil {
		return false, fmt.Errorf("failed to delete organization instructions: %w", mapPostgresError(err))
	}
	return result.RowsAffected() > 0, nil
}

func (s *InstructionStore) scan(row pgx.Row, orgID *uuid.UUID) (*models.InstructionSet, error) {
	var (
		set       models.InstructionSet
		overrides []byte
	)
	if err := row.Scan(&overrides, &set.UpdatedAt, &set.UpdatedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrInstructionSetNotFound
		}
		return nil, fmt.Errorf("failed to get instructions: %w", mapPostgresError(err))
	}

	if err := json.Unmarshal(overrides, &set.Overrides); err != nil {
		return nil, fmt.Errorf("failed to unmarshal overrides: %w", err)
	}
	if set.Overrides == nil {
		set.Overrides = map[string]string{}
	}
	set.OrgID = orgID
	return &set, nil
}
