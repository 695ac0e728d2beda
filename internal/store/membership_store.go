package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// Sentinel errors for membership store operations
var (
	ErrMembershipNotFound      = errors.New("membership not found")
	ErrMembershipAlreadyExists = errors.New("membership already exists")
)

// MembershipStore manages the join between accounts and organizations.
type MembershipStore interface {
	// Create adds a membership.
	// Returns ErrMembershipAlreadyExists if the account is already a member.
	Create(ctx context.Context, membership *models.Membership) error

	// Get retrieves one membership.
	// Returns ErrMembershipNotFound if the account is not a member.
	Get(ctx context.Context, orgID, accountID uuid.UUID) (*models.Membership, error)

	// ListByOrg returns all memberships of an organization ordered by join time.
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error)

	// ListByAccount returns all memberships held by an account ordered by join time.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Membership, error)

	// UpdateRole changes the role of an existing membership.
	// Returns ErrMembershipNotFound if the account is not a member.
	UpdateRole(ctx context.Context, orgID, accountID uuid.UUID, role models.OrgRole) error

	// Delete removes one membership. Deleting an absent membership succeeds.
	Delete(ctx context.Context, orgID, accountID uuid.UUID) error

	// DeleteByAccount removes every membership held by an account and returns the count removed.
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	// DeleteByOrg removes every membership of an organization and returns the count removed.
	DeleteByOrg(ctx context.Context, orgID uuid.UUID) (int64, error)
}
