package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

// PurgeStep names one step of an account purge, in execution order.
type PurgeStep string

const (
	StepProjectContents PurgeStep = "project_contents"
	StepProjects        PurgeStep = "projects"
	StepSettings        PurgeStep = "settings"
	StepMemberships     PurgeStep = "memberships"
	StepAccount         PurgeStep = "account"
)

// PurgeError reports the step at which a purge stopped.
// Every step is idempotent, so the whole purge can be re-run from the start.
type PurgeError struct {
	AccountID uuid.UUID
	Step      PurgeStep
	Err       error
}

func (e *PurgeError) Error() string {
	return fmt.Sprintf("purge of account %s failed at %s: %v", e.AccountID, e.Step, e.Err)
}

func (e *PurgeError) Unwrap() error {
	return e.Err
}

// PurgeReport counts what a purge removed.
type PurgeReport struct {
	AccountID          uuid.UUID
	ContentsDeleted    int64
	ProjectsDeleted    int64
	SettingsDeleted    bool
	MembershipsDeleted int64
	AccountDeleted     bool

	// OrgIDs lists the organizations the account was a member of when the purge ran.
	OrgIDs []uuid.UUID
}

// Details renders the report for an audit record.
func (r *PurgeReport) Details() map[string]any {
	orgIDs := make([]string, 0, len(r.OrgIDs))
	for _, id := range r.OrgIDs {
		orgIDs = append(orgIDs, id.String())
	}
	return map[string]any{
		"contents_deleted":    r.ContentsDeleted,
		"projects_deleted":    r.ProjectsDeleted,
		"settings_deleted":    r.SettingsDeleted,
		"memberships_deleted": r.MembershipsDeleted,
		"account_deleted":     r.AccountDeleted,
		"org_ids":             orgIDs,
	}
}

// Purger removes every record owned by one account.
type Purger struct {
	stores *store.Stores
}

// NewPurger creates a purger over the given stores.
func NewPurger(stores *store.Stores) *Purger {
	return &Purger{stores: stores}
}

// PurgeAccount deletes, in order, the contents of every project the account owns, those projects,
// the account settings, every membership and finally the account record.
//
// On failure the returned report holds what was removed before the failing step and the error is a
// StorageFailure wrapping a *PurgeError. A partially purged account is expected to be purged again.
func (p *Purger) PurgeAccount(ctx context.Context, accountID uuid.UUID) (*PurgeReport, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "admin.PurgeAccount")
	defer span.End()

	m := telemetry.GetMetrics()
	m.PurgesTotal.Add(ctx, 1)

	report := &PurgeReport{AccountID: accountID}

	fail := func(step PurgeStep, err error) (*PurgeReport, error) {
		m.PurgeFailuresTotal.Add(ctx, 1)
		span.RecordError(err)
		log.Error().
			Err(err).
			Str("account_id", accountID.String()).
			Str("step", string(step)).
			Msg("Account purge stopped, re-run the purge to finish")
		pe := &PurgeError{AccountID: accountID, Step: step, Err: err}
		return report, &apperr.Error{Kind: apperr.StorageFailure, Message: err.Error(), Err: pe}
	}

	projects, err := p.stores.Projects.ListByOwner(ctx, accountID)
	if err != nil {
		return fail(StepProjectContents, err)
	}
	projectIDs := make([]uuid.UUID, 0, len(projects))
	for _, project := range projects {
		projectIDs = append(projectIDs, project.ProjectID)
	}

	if len(projectIDs) > 0 {
		report.ContentsDeleted, err = p.stores.Projects.DeleteContents(ctx, projectIDs)
		if err != nil {
			return fail(StepProjectContents, err)
		}

		report.ProjectsDeleted, err = p.stores.Projects.Delete(ctx, projectIDs)
		if err != nil {
			return fail(StepProjects, err)
		}
	}

	report.SettingsDeleted, err = p.stores.Settings.Delete(ctx, accountID)
	if err != nil {
		return fail(StepSettings, err)
	}

	memberships, err := p.stores.Memberships.ListByAccount(ctx, accountID)
	if err != nil {
		return fail(StepMemberships, err)
	}
	for _, membership := range memberships {
		report.OrgIDs = append(report.OrgIDs, membership.OrgID)
	}

	report.MembershipsDeleted, err = p.stores.Memberships.DeleteByAccount(ctx, accountID)
	if err != nil {
		return fail(StepMemberships, err)
	}

	if err := p.stores.Accounts.Delete(ctx, accountID); err != nil {
		return fail(StepAccount, err)
	}
	report.AccountDeleted = true

	m.PurgedRowsTotal.Add(ctx, report.ContentsDeleted+report.ProjectsDeleted+report.MembershipsDeleted+1)

	log.Info().
		Str("account_id", accountID.String()).
		Int64("projects", report.ProjectsDeleted).
		Int64("contents", report.ContentsDeleted).
		Int64("memberships", report.MembershipsDeleted).
		Msg("Purged account")

	return report, nil
}
