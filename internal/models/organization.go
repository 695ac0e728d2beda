package models

import (
	"time"

	"github.com/google/uuid"
)

// OrgRole is the role an account holds within a single organization.
type OrgRole string

const (
	OrgRoleMember OrgRole = "member"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleOwner  OrgRole = "owner"
)

// Valid reports whether r is one of the known organization roles.
func (r OrgRole) Valid() bool {
	switch r {
	case OrgRoleMember, OrgRoleAdmin, OrgRoleOwner:
		return true
	}
	return false
}

// Organization represents an organization (tenant) in the system.
// The owner is not stored on the organization, it is the account holding the owner membership.
type Organization struct {
	OrgID     uuid.UUID // UUIDv7
	Name      string
	Slug      string // unique
	LogoURL   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership links an account to an organization with an organization role.
// The (OrgID, AccountID) pair is unique.
type Membership struct {
	OrgID     uuid.UUID
	AccountID uuid.UUID
	Role      OrgRole
	JoinedAt  time.Time
}

// Member is a membership joined with the profile fields the caller is allowed to read.
// Profile fields are nil when the account record could not be read.
type Member struct {
	Membership
	Email       *string
	DisplayName *string
}
