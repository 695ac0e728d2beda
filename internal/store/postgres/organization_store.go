package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

const organizationColumns = `org_id, name, slug, logo_url, created_at, updated_at`

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

// NewOrganizationStore creates a new PostgreSQL-backed organization store.
// It shares the connection pool with other stores.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{
		pool: pool,
	}
}

// Create creates a new organization in the database.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (
			org_id, name, slug, logo_url, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := s.pool.Exec(ctx, query,
		org.OrgID,
		org.Name,
		org.Slug,
		org.LogoURL,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("slug", org.Slug).
		Msg("Created organization")

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE org_id = $1`
	return s.getOne(ctx, query, orgID)
}

// GetBySlug retrieves an organization by slug.
func (s *OrganizationStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE slug = $1`
	return s.getOne(ctx, query, slug)
}

func (s *OrganizationStore) getOne(ctx context.Context, query string, arg any) (*models.Organization, error) {
	org, err := scanOrganization(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", mapPostgresError(err))
	}
	return org, nil
}

// ListByIDs returns the organizations that exist for the given IDs.
func (s *OrganizationStore) ListByIDs(ctx context.Context, orgIDs []uuid.UUID) ([]*models.Organization, error) {
	if len(orgIDs) == 0 {
		return []*models.Organization{}, nil
	}

	query := `
		SELECT ` + organizationColumns + `
		FROM organizations
		WHERE org_id = ANY($1::uuid[])
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, uuidArray(orgIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	orgs := []*models.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}

	return orgs, nil
}

// Update updates an existing organization's name and logo. The slug never changes.
func (s *OrganizationStore) Update(ctx context.Context, org *models.Organization) error {
	if org.UpdatedAt.IsZero() {
		org.UpdatedAt = time.Now()
	}

	query := `
		UPDATE organizations SET
			name = $2,
			logo_url = $3,
			updated_at = $4
		WHERE org_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		org.OrgID,
		org.Name,
		org.LogoURL,
		org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Msg("Updated organization")

	return nil
}

// Delete deletes an organization by ID. Nothing cascades: memberships, projects, the
// instruction set and active organization references must be removed first.
// Deleting an absent organization succeeds.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE org_id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("org_id", orgID.String()).
		Int64("rows", result.RowsAffected()).
		Msg("Deleted organization")

	return nil
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	err := row.Scan(
		&org.OrgID,
		&org.Name,
		&org.Slug,
		&org.LogoURL,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &org, nil
}
