package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// Sentinel errors for account store operations
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
)

// AccountStore defines the interface for account (profile) storage operations.
type AccountStore interface {
	// Create creates a new account.
	// Returns ErrAccountAlreadyExists if the ID or email is taken.
	Create(ctx context.Context, account *models.Account) error

	// Get retrieves an account by ID.
	// Returns ErrAccountNotFound if the account doesn't exist.
	Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error)

	// GetByEmail retrieves an account by email address.
	// Returns ErrAccountNotFound if no account has that email.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// ListByIDs returns the accounts that exist for the given IDs.
	// Missing or unreadable accounts are omitted rather than reported.
	ListByIDs(ctx context.Context, accountIDs []uuid.UUID) ([]*models.Account, error)

	// UpdateRole sets the global role of an account.
	// Returns ErrAccountNotFound if the account doesn't exist.
	UpdateRole(ctx context.Context, accountID uuid.UUID, role models.GlobalRole) error

	// SetActiveOrg sets or clears (orgID == nil) the active organization of an account.
	// Returns ErrAccountNotFound if the account doesn't exist.
	SetActiveOrg(ctx context.Context, accountID uuid.UUID, orgID *uuid.UUID) error

	// ClearActiveOrg clears the active organization of an account only if it currently points at orgID.
	// Returns true if a row was changed. A missing account is not an error.
	ClearActiveOrg(ctx context.Context, accountID, orgID uuid.UUID) (bool, error)

	// ClearActiveOrgForOrg clears the active organization of every account pointing at orgID,
	// whether or not the account still holds a membership there. Returns the number of accounts changed.
	ClearActiveOrgForOrg(ctx context.Context, orgID uuid.UUID) (int64, error)

	// Delete deletes an account. Deleting an absent account succeeds.
	Delete(ctx context.Context, accountID uuid.UUID) error
}
