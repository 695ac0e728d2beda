package store

// Stores groups every record collection the services operate on.
// The backing engine exposes per-row operations only; no method here spans a transaction.
type Stores struct {
	Accounts      AccountStore
	Organizations OrganizationStore
	Memberships   MembershipStore
	Projects      ProjectStore
	Settings      SettingsStore
	Instructions  InstructionStore
	Audit         AuditStore
}
