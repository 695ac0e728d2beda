package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

const projectColumns = `project_id, owner_id, org_id, name, created_at`

// ProjectStore implements store.ProjectStore using PostgreSQL.
type ProjectStore struct {
	pool *pgxpool.Pool
}

// NewProjectStore creates a new PostgreSQL-backed project store.
func NewProjectStore(pool *pgxpool.Pool) *ProjectStore {
	return &ProjectStore{
		pool: pool,
	}
}

// Create creates a project.
func (s *ProjectStore) Create(ctx context.Context, p *models.Project) error {
	query := `
		INSERT INTO projects (project_id, owner_id, org_id, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, p.ProjectID, p.OwnerID, p.OrgID, p.Name, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", mapPostgresError(err))
	}
	return nil
}

// AddContent stores one content item inside a project.
func (s *ProjectStore) AddContent(ctx context.Context, c *models.ProjectContent) error {
	query := `
		INSERT INTO project_contents (content_id, project_id, name, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, c.ContentID, c.ProjectID, c.Name, c.Body, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add project content: %w", mapPostgresError(err))
	}
	return nil
}

// ListByOwner returns every project owned by an account.
func (s *ProjectStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error) {
	return s.list(ctx, `SELECT `+projectColumns+` FROM projects WHERE owner_id = $1 ORDER BY created_at`, ownerID)
}

// ListByOrg returns every project scoped to an organization.
func (s *ProjectStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Project, error) {
	return s.list(ctx, `SELECT `+projectColumns+` FROM projects WHERE org_id = $1 ORDER BY created_at`, orgID)
}

// ListByOwnerInOrg returns the projects an account owns inside one organization.
func (s *ProjectStore) ListByOwnerInOrg(ctx context.Context, ownerID, orgID uuid.UUID) ([]*models.Project, error) {
	return s.list(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE owner_id = $1 AND org_id = $2
		ORDER BY created_at
	`, ownerID, orgID)
}

func (s *ProjectStore) list(ctx context.Context, query string, args ...any) ([]*models.Project, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", mapPostgresError(err))
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ProjectID, &p.OwnerID, &p.OrgID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

// ListContents returns the content items of a project.
func (s *ProjectStore) ListContents(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectContent, error) {
	query := `
		SELECT content_id, project_id, name, body, created_at
		FROM project_contents
		WHERE project_id = $1
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project contents: %w", mapPostgresError(err))
	}
	defer rows.Close()

	contents := []*models.ProjectContent{}
	for rows.Next() {
		var c models.ProjectContent
		if err := rows.Scan(&c.ContentID, &c.ProjectID, &c.Name, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project content: %w", err)
		}
		contents = append(contents, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project contents: %w", err)
	}

	return contents, nil
}

// DeleteContents removes the contents of the given projects.
func (s *ProjectStore) DeleteContents(ctx context.Context, projectIDs []uuid.UUID) (int64, error) {
	if len(projectIDs) == 0 {
		return 0, nil
	}

	result, err := s.pool.Exec(ctx, `DELETE FROM project_contents WHERE project_id = ANY($1::uuid[])`, uuidArray(projectIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete project contents: %w", mapPostgresError(err))
	}
	return result.RowsAffected(), nil
}

// Delete removes the given projects. Their contents must already be gone.
func (s *ProjectStore) Delete(ctx context.Context, projectIDs []uuid.UUID) (int64, error) {
	if len(projectIDs) == 0 {
		return 0, nil
	}

	result, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE project_id = ANY($1::uuid[])`, uuidArray(projectIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete projects: %w", mapPostgresError(err))
	}

	log.Debug().
		Int("requested", len(projectIDs)).
		Int64("rows", result.RowsAffected()).
		Msg("Deleted projects")

	return result.RowsAffected(), nil
}
