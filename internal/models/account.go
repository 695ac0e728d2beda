package models

import (
	"time"

	"github.com/google/uuid"
)

// GlobalRole is the system-wide role of an account.
type GlobalRole string

const (
	GlobalRoleUser       GlobalRole = "user"
	GlobalRoleAdmin      GlobalRole = "admin"
	GlobalRoleSuperadmin GlobalRole = "superadmin"
)

// Valid reports whether r is one of the known global roles.
func (r GlobalRole) Valid() bool {
	switch r {
	case GlobalRoleUser, GlobalRoleAdmin, GlobalRoleSuperadmin:
		return true
	}
	return false
}

// Account represents one end user.
// Accounts are created at signup outside of this system and destroyed by a purge.
type Account struct {
	AccountID   uuid.UUID // UUIDv7
	Email       string
	DisplayName string
	Role        GlobalRole

	// ActiveOrgID is the organization the account is currently operating within.
	// When set it must reference a membership the account still holds.
	ActiveOrgID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountSettings holds per-account preferences.
type AccountSettings struct {
	AccountID   uuid.UUID
	Preferences map[string]string
	UpdatedAt   time.Time
}
