// Package audit appends immutable records describing privileged actions.
//
// Writing an audit record never fails the operation being audited. A store failure is
// logged at warn level and counted, and the caller carries on.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

// Action tags written to the audit log.
const (
	ActionAccountDelete        = "account.delete"
	ActionAccountRemoveFromOrg = "account.remove_from_org"
	ActionAccountSelfDelete    = "account.self_delete"
	ActionAccountRoleUpdate    = "account.role_update"
	ActionAccountPurge         = "account.purge"
	ActionOrganizationCreate   = "organization.create"
	ActionOrganizationUpdate   = "organization.update"
	ActionOrganizationDelete   = "organization.delete"
	ActionMembershipAdd        = "membership.add"
	ActionMembershipRoleUpdate = "membership.role_update"
	ActionMembershipLeave      = "membership.leave"
	ActionGlobalInstructions   = "instructions.global.save"
	ActionGlobalReset          = "instructions.global.reset"
	ActionOrgInstructions      = "instructions.organization.save"
	ActionOrgReset             = "instructions.organization.reset"
)

// Entry describes one privileged action.
type Entry struct {
	ActorID  uuid.UUID
	Action   string
	TargetID *uuid.UUID
	Details  map[string]any
}

// Recorder writes audit entries to an AuditStore.
type Recorder struct {
	store store.AuditStore
	now   func() time.Time
}

// NewRecorder creates a recorder backed by st.
func NewRecorder(st store.AuditStore) *Recorder {
	return &Recorder{store: st, now: time.Now}
}

// Record appends one record. Failures are logged, never returned.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	details := e.Details
	if details == nil {
		details = map[string]any{}
	}

	record := &models.AuditRecord{
		RecordID:  id,
		ActorID:   e.ActorID,
		Action:    e.Action,
		TargetID:  e.TargetID,
		Details:   details,
		CreatedAt: r.now().UTC(),
	}

	m := telemetry.GetMetrics()
	if err := r.store.Append(ctx, record); err != nil {
		m.AuditFailuresTotal.Add(ctx, 1)
		log.Warn().
			Err(err).
			Str("action", e.Action).
			Str("actor_id", e.ActorID.String()).
			Msg("Failed to write audit record")
		return
	}
	m.AuditRecordsTotal.Add(ctx, 1)

	log.Debug().
		Str("action", e.Action).
		Str("actor_id", e.ActorID.String()).
		Str("record_id", id.String()).
		Msg("Audit record written")
}

// List returns audit records matching opts, newest first.
func (r *Recorder) List(ctx context.Context, opts store.ListAuditOptions) ([]*models.AuditRecord, error) {
	return r.store.List(ctx, opts)
}

// Target returns a pointer to id for use as Entry.TargetID.
func Target(id uuid.UUID) *uuid.UUID {
	return &id
}
