package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// Sentinel errors for organization store operations
var (
	ErrOrganizationNotFound      = errors.New("organization not found")
	ErrOrganizationAlreadyExists = errors.New("organization already exists")
)

// OrganizationStore defines the interface for organization storage operations.
// Organizations represent tenants in the system.
type OrganizationStore interface {
	// Create creates a new organization in the store.
	// Returns ErrOrganizationAlreadyExists if the ID or slug is taken.
	Create(ctx context.Context, org *models.Organization) error

	// Get retrieves an organization by ID.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)

	// GetBySlug retrieves an organization by its unique slug.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// ListByIDs returns the organizations that exist for the given IDs, ordered by name.
	ListByIDs(ctx context.Context, orgIDs []uuid.UUID) ([]*models.Organization, error)

	// Update updates the name and logo of an existing organization.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Update(ctx context.Context, org *models.Organization) error

	// Delete deletes an organization row. Nothing is cascaded; callers remove
	// dependent rows first. Deleting an absent organization succeeds.
	Delete(ctx context.Context, orgID uuid.UUID) error
}
