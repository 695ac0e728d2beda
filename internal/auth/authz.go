package auth

import (
	"errors"

	"github.com/wolfeidau/orgkeeper/internal/models"
)

// Role model errors. Callers translate these into apperr kinds at the service boundary.
var (
	ErrNotAuthorized = errors.New("not authorized to assign this role")
	ErrTargetIsSelf  = errors.New("you cannot change your own role")
)

// OrgAuthority is the authority a caller holds over an organization's membership.
type OrgAuthority int

const (
	AuthorityForbidden OrgAuthority = iota
	AuthorityOrgAdmin
	AuthorityOrgOwner
	AuthoritySuperadminOverride
)

func (a OrgAuthority) String() string {
	switch a {
	case AuthorityOrgAdmin:
		return "org-admin"
	case AuthorityOrgOwner:
		return "org-owner"
	case AuthoritySuperadminOverride:
		return "superadmin-override"
	default:
		return "forbidden"
	}
}

// CanManage returns true for every authority other than forbidden.
func (a OrgAuthority) CanManage() bool {
	return a != AuthorityForbidden
}

// IsPrivileged returns true for admin and superadmin accounts.
func IsPrivileged(role models.GlobalRole) bool {
	return role == models.GlobalRoleAdmin || role == models.GlobalRoleSuperadmin
}

// IsSuperadmin returns true for superadmin accounts.
func IsSuperadmin(role models.GlobalRole) bool {
	return role == models.GlobalRoleSuperadmin
}

// CanAssignRole decides whether a caller may move a target from current to requested.
// Self role changes are always rejected, and only superadmins may grant or revoke superadmin.
func CanAssignRole(callerIsSuperadmin, targetIsSelf bool, current, requested models.GlobalRole) error {
	if targetIsSelf {
		return ErrTargetIsSelf
	}
	if callerIsSuperadmin {
		return nil
	}
	if current == models.GlobalRoleSuperadmin || requested == models.GlobalRoleSuperadmin {
		return ErrNotAuthorized
	}
	return nil
}

// CanActOnOrg returns the authority a caller holds over an organization.
// callerOrgRole is empty when the caller holds no membership.
func CanActOnOrg(callerIsSuperadmin bool, callerOrgRole models.OrgRole) OrgAuthority {
	if callerIsSuperadmin {
		return AuthoritySuperadminOverride
	}
	switch callerOrgRole {
	case models.OrgRoleOwner:
		return AuthorityOrgOwner
	case models.OrgRoleAdmin:
		return AuthorityOrgAdmin
	default:
		return AuthorityForbidden
	}
}
