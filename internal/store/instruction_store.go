package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// ErrInstructionSetNotFound is returned when no instruction set has been saved.
var ErrInstructionSetNotFound = errors.New("instruction set not found")

// InstructionStore manages the global and per-organization instruction override sets.
type InstructionStore interface {
	// GetGlobal returns the global instruction set.
	// Returns ErrInstructionSetNotFound if it was never saved.
	GetGlobal(ctx context.Context) (*models.InstructionSet, error)

	// UpsertGlobal creates or replaces the global instruction set.
	UpsertGlobal(ctx context.Context, set *models.InstructionSet) error

	// GetForOrg returns the instruction set of an organization.
	// Returns ErrInstructionSetNotFound if the organization has none.
	GetForOrg(ctx context.Context, orgID uuid.UUID) (*models.InstructionSet, error)

	// UpsertForOrg creates or replaces the instruction set of an organization (set.OrgID must be set).
	UpsertForOrg(ctx context.Context, set *models.InstructionSet) error

	// DeleteForOrg removes the instruction set of an organization and reports whether a row existed.
	DeleteForOrg(ctx context.Context, orgID uuid.UUID) (bool, error)
}
