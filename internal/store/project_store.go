package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// ProjectStore manages projects and their contents.
// Projects are created outside of this system; this layer lists and deletes them.
type ProjectStore interface {
	// Create creates a project.
	Create(ctx context.Context, project *models.Project) error

	// AddContent stores one content item inside a project.
	AddContent(ctx context.Context, content *models.ProjectContent) error

	// ListByOwner returns every project owned by an account, personal and organization scoped.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error)

	// ListByOrg returns every project scoped to an organization.
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Project, error)

	// ListByOwnerInOrg returns the projects an account owns inside one organization.
	ListByOwnerInOrg(ctx context.Context, ownerID, orgID uuid.UUID) ([]*models.Project, error)

	// ListContents returns the content items of a project.
	ListContents(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectContent, error)

	// DeleteContents removes the contents of the given projects and returns the count removed.
	DeleteContents(ctx context.Context, projectIDs []uuid.UUID) (int64, error)

	// Delete removes the given projects and returns the count removed.
	// Contents must be removed first.
	Delete(ctx context.Context, projectIDs []uuid.UUID) (int64, error)
}
