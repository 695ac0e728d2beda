package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/audit"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

// UpdateRole assigns a global role to an account. The caller must be an admin or superadmin.
// Assigning the role the account already has succeeds without writing anything.
func (s *Service) UpdateRole(ctx context.Context, targetID uuid.UUID, role models.GlobalRole) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "admin.UpdateRole")
	defer span.End()
	defer func() { s.finish(ctx, procUpdateRole, err) }()

	if !role.Valid() {
		return apperr.New(apperr.InvalidTarget, "unknown role %q", role)
	}

	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return err
	}
	if !auth.IsPrivileged(caller.Role) {
		return apperr.New(apperr.NotAuthorized, "only admins can change roles")
	}

	target, err := s.getAccount(ctx, targetID)
	if err != nil {
		return err
	}

	err = auth.CanAssignRole(auth.IsSuperadmin(caller.Role), targetID == caller.AccountID, target.Role, role)
	switch {
	case errors.Is(err, auth.ErrTargetIsSelf):
		return apperr.New(apperr.InvalidTarget, "%s", err.Error())
	case err != nil:
		return apperr.New(apperr.NotAuthorized, "only superadmins can grant or revoke the superadmin role")
	}

	if target.Role == role {
		return nil
	}

	if err := s.stores.Accounts.UpdateRole(ctx, targetID, role); err != nil {
		return apperr.Storage(err)
	}
	telemetry.GetMetrics().RoleAssignmentTotal.Add(ctx, 1)

	log.Info().
		Str("account_id", targetID.String()).
		Str("from", string(target.Role)).
		Str("to", string(role)).
		Msg("Updated account role")

	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionAccountRoleUpdate,
		TargetID: audit.Target(targetID),
		Details: map[string]any{
			"from": string(target.Role),
			"to":   string(role),
		},
	})

	return nil
}
