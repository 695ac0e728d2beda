package commands

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/admin"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/orgs"
)

type OrgCmd struct {
	Create       OrgCreateCmd       `cmd:"" help:"Create an organization owned by the actor"`
	List         OrgListCmd         `cmd:"" help:"List organizations visible to the actor"`
	Delete       OrgDeleteCmd       `cmd:"" help:"Delete an organization and its tenant data"`
	Members      OrgMembersCmd      `cmd:"" help:"List organization members"`
	AddMember    OrgAddMemberCmd    `cmd:"" help:"Add an existing account to an organization"`
	RemoveMember OrgRemoveMemberCmd `cmd:"" help:"Remove an account from an organization"`
	Leave        OrgLeaveCmd        `cmd:"" help:"Leave an organization"`
}

type OrgCreateCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Name  string    `help:"organization name" required:""`
}

func (c *OrgCreateCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	session := orgs.NewSession(env.orgs, env.orgCache)
	org, err := session.CreateOrganization(as(ctx, c.Actor), c.Name)
	if err != nil {
		return err
	}
	return printResult(organizationView(org))
}

type OrgListCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
}

func (c *OrgListCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	list, err := env.orgs.ListOrganizations(as(ctx, c.Actor))
	if err != nil {
		return err
	}

	out := make([]map[string]any, 0, len(list))
	for _, org := range list {
		out = append(out, organizationView(org))
	}
	return printResult(out)
}

type OrgDeleteCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Org   uuid.UUID `help:"organization id" required:""`
}

func (c *OrgDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	deletion, err := env.admin.DeleteOrganization(as(ctx, c.Actor), c.Org)
	if err != nil {
		return err
	}
	return printResult(deletion.Details())
}

type OrgMembersCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Org   uuid.UUID `help:"organization id" required:""`
}

func (c *OrgMembersCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	members, err := env.orgs.GetOrgMembers(as(ctx, c.Actor), c.Org)
	if err != nil {
		return err
	}

	out := make([]map[string]any, 0, len(members))
	for _, m := range members {
		out = append(out, memberView(m))
	}
	return printResult(out)
}

type OrgAddMemberCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Org   uuid.UUID `help:"organization id" required:""`
	Email string    `help:"email of the account to add" required:""`
	Role  string    `help:"organization role" default:"member" enum:"member,admin"`
}

func (c *OrgAddMemberCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	m, err := env.orgs.AddMember(as(ctx, c.Actor), c.Org, c.Email, models.OrgRole(c.Role))
	if err != nil {
		return err
	}
	return printResult(memberView(&models.Member{Membership: *m}))
}

type OrgRemoveMemberCmd struct {
	Actor             uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Org               uuid.UUID `help:"organization id" required:""`
	Target            uuid.UUID `help:"account id to remove" required:""`
	AlsoDeleteAccount bool      `help:"purge the account even if it belongs to other organizations"`
}

func (c *OrgRemoveMemberCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	report, err := env.admin.RemoveFromOrganization(as(ctx, c.Actor), c.Org, c.Target, admin.RemoveOptions{
		AlsoDeleteAccount: c.AlsoDeleteAccount,
	})
	if err != nil {
		return err
	}

	out := map[string]any{
		"org_id":                report.OrgID.String(),
		"account_id":            report.AccountID.String(),
		"contents_deleted":      report.ContentsDeleted,
		"projects_deleted":      report.ProjectsDeleted,
		"active_org_cleared":    report.ActiveOrgCleared,
		"remaining_memberships": report.RemainingMemberships,
		"purge_skipped":         report.PurgeSkipped,
	}
	if report.Purge != nil {
		out["purge"] = report.Purge.Details()
	}
	return printResult(out)
}

type OrgLeaveCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Org   uuid.UUID `help:"organization id" required:""`
}

func (c *OrgLeaveCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	session := orgs.NewSession(env.orgs, env.orgCache)
	return session.LeaveOrganization(as(ctx, c.Actor), c.Org)
}

func organizationView(org *models.Organization) map[string]any {
	return map[string]any{
		"org_id":     org.OrgID.String(),
		"name":       org.Name,
		"slug":       org.Slug,
		"logo_url":   org.LogoURL,
		"created_at": org.CreatedAt,
	}
}

func memberView(m *models.Member) map[string]any {
	out := map[string]any{
		"account_id": m.AccountID.String(),
		"role":       string(m.Role),
		"joined_at":  m.JoinedAt,
	}
	if m.Email != nil {
		out["email"] = *m.Email
	}
	if m.DisplayName != nil {
		out["display_name"] = *m.DisplayName
	}
	return out
}
