package memory

import "github.com/wolfeidau/orgkeeper/internal/store"

// NewStores returns a complete set of in-memory stores.
func NewStores() *store.Stores {
	return &store.Stores{
		Accounts:      NewAccountStore(),
		Organizations: NewOrganizationStore(),
		Memberships:   NewMembershipStore(),
		Projects:      NewProjectStore(),
		Settings:      NewSettingsStore(),
		Instructions:  NewInstructionStore(),
		Audit:         NewAuditStore(),
	}
}
