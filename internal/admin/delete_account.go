package admin

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/audit"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

// DeleteAccount is the global user delete. Only superadmins may call it, never on themselves
// and never on another superadmin. The target is always fully purged.
func (s *Service) DeleteAccount(ctx context.Context, targetID uuid.UUID) (report *PurgeReport, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "admin.DeleteAccount")
	defer span.End()
	defer func() { s.finish(ctx, procDeleteAccount, err) }()

	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return nil, err
	}
	if !auth.IsSuperadmin(caller.Role) {
		return nil, apperr.New(apperr.NotAuthorized, "only superadmins can delete accounts")
	}
	if targetID == caller.AccountID {
		return nil, apperr.New(apperr.InvalidTarget, "you cannot delete your own account here")
	}

	target, err := s.getAccount(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if auth.IsSuperadmin(target.Role) {
		return nil, apperr.New(apperr.InvalidTarget, "superadmin accounts cannot be deleted")
	}

	report, err = s.purger.PurgeAccount(ctx, targetID)
	if err != nil {
		return report, err
	}

	details := report.Details()
	details["email"] = target.Email
	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionAccountDelete,
		TargetID: audit.Target(targetID),
		Details:  details,
	})

	return report, nil
}

// PurgeAccount re-runs the purge primitive for an account, including one whose account row is
// already gone after an earlier partial purge. Superadmin only; superadmin targets are refused.
func (s *Service) PurgeAccount(ctx context.Context, targetID uuid.UUID) (report *PurgeReport, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "admin.PurgeAccount")
	defer span.End()
	defer func() { s.finish(ctx, procPurgeAccount, err) }()

	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return nil, err
	}
	if !auth.IsSuperadmin(caller.Role) {
		return nil, apperr.New(apperr.NotAuthorized, "only superadmins can purge accounts")
	}
	if targetID == caller.AccountID {
		return nil, apperr.New(apperr.InvalidTarget, "you cannot purge your own account")
	}

	target, err := s.getAccount(ctx, targetID)
	switch {
	case apperr.IsKind(err, apperr.NotFound):
		// leftovers of a partial purge
	case err != nil:
		return nil, err
	case auth.IsSuperadmin(target.Role):
		return nil, apperr.New(apperr.InvalidTarget, "superadmin accounts cannot be purged")
	}

	report, err = s.purger.PurgeAccount(ctx, targetID)
	if err != nil {
		return report, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionAccountPurge,
		TargetID: audit.Target(targetID),
		Details:  report.Details(),
	})

	return report, nil
}
