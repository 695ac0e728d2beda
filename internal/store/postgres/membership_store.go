package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

const membershipColumns = `org_id, account_id, role, joined_at`

// MembershipStore implements store.MembershipStore using PostgreSQL.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore creates a new PostgreSQL-backed membership store.
func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{
		pool: pool,
	}
}

// Create creates a membership.
func (s *MembershipStore) Create(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO organization_memberships (org_id, account_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, m.OrgID, m.AccountID, string(m.Role), m.JoinedAt)
	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("org_id", m.OrgID.String()).
		Str("account_id", m.AccountID.String()).
		Str("role", string(m.Role)).
		Msg("Created membership")

	return nil
}

// Get retrieves one membership.
func (s *MembershipStore) Get(ctx context.Context, orgID, accountID uuid.UUID) (*models.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM organization_memberships
		WHERE org_id = $1 AND account_id = $2
	`

	m, err := scanMembership(s.pool.QueryRow(ctx, query, orgID, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", mapPostgresError(err))
	}
	return m, nil
}

// ListByOrg returns the memberships of an organization in join order.
func (s *MembershipStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error) {
	return s.list(ctx, `
		SELECT `+membershipColumns+`
		FROM organization_memberships
		WHERE org_id = $1
		ORDER BY joined_at
	`, orgID)
}

// ListByAccount returns the memberships held by an account in join order.
func (s *MembershipStore) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Membership, error) {
	return s.list(ctx, `
		SELECT `+membershipColumns+`
		FROM organization_memberships
		WHERE account_id = $1
		ORDER BY joined_at
	`, accountID)
}

func (s *MembershipStore) list(ctx context.Context, query string, arg uuid.UUID) ([]*models.Membership, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", mapPostgresError(err))
	}
	defer rows.Close()

	memberships := []*models.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	return memberships, nil
}

// UpdateRole changes the role of a membership.
func (s *MembershipStore) UpdateRole(ctx context.Context, orgID, accountID uuid.UUID, role models.OrgRole) error {
	query := `UPDATE organization_memberships SET role = $3 WHERE org_id = $1 AND account_id = $2`

	result, err := s.pool.Exec(ctx, query, orgID, accountID, string(role))
	if err != nil {
		return fmt.Errorf("failed to update membership role: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrMembershipNotFound
	}
	return nil
}

// Delete removes one membership. Deleting an absent membership succeeds.
func (s *MembershipStore) Delete(ctx context.Context, orgID, accountID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM organization_memberships WHERE org_id = $1 AND account_id = $2`, orgID, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", mapPostgresError(err))
	}
	return nil
}

// DeleteByAccount removes every membership held by an account.
func (s *MembershipStore) DeleteByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM organization_memberships WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete memberships: %w", mapPostgresError(err))
	}
	return result.RowsAffected(), nil
}

// DeleteByOrg removes every membership of an organization.
func (s *MembershipStore) DeleteByOrg(ctx context.Context, orgID uuid.UUID) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM organization_memberships WHERE org_id = $1`, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete memberships: %w", mapPostgresError(err))
	}
	return result.RowsAffected(), nil
}

func scanMembership(row pgx.Row) (*models.Membership, error) {
	var (
		m    models.Membership
		role string
	)
	if err := row.Scan(&m.OrgID, &m.AccountID, &role, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Role = models.OrgRole(role)
	return &m, nil
}
