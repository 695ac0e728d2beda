package commands

import (
	"context"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/admin"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

type AccountCmd struct {
	Delete     AccountDeleteCmd     `cmd:"" help:"Delete an account and everything it owns"`
	SelfDelete AccountSelfDeleteCmd `cmd:"" help:"Delete the acting account"`
	Purge      AccountPurgeCmd      `cmd:"" help:"Re-run the purge of a partially deleted account"`
	Role       AccountRoleCmd       `cmd:"" help:"Change the global role of an account"`
}

type AccountDeleteCmd struct {
	Actor    uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Target   uuid.UUID `help:"account id to delete" required:""`
	MaxTries uint      `help:"attempts before giving up on storage failures" default:"5"`
}

func (c *AccountDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	report, err := retryStorageFailures(as(ctx, c.Actor), backoff.NewExponentialBackOff(), c.MaxTries,
		func(ctx context.Context) (*admin.PurgeReport, error) {
			return env.admin.DeleteAccount(ctx, c.Target)
		})
	if err != nil {
		return err
	}

	env.log.Info().Str("account_id", c.Target.String()).Msg("Account deleted")
	return printResult(report.Details())
}

type AccountSelfDeleteCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
}

func (c *AccountSelfDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.admin.DeleteSelf(as(ctx, c.Actor))
	if err != nil {
		return err
	}

	orgs := make([]map[string]any, 0, len(result.Organizations))
	for _, d := range result.Organizations {
		orgs = append(orgs, d.Details())
	}
	return printResult(map[string]any{
		"organizations": orgs,
		"purge":         result.Purge.Details(),
	})
}

type AccountPurgeCmd struct {
	Actor    uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Target   uuid.UUID `help:"account id to purge" required:""`
	MaxTries uint      `help:"attempts before giving up on storage failures" default:"5"`
}

func (c *AccountPurgeCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	report, err := retryStorageFailures(as(ctx, c.Actor), backoff.NewExponentialBackOff(), c.MaxTries,
		func(ctx context.Context) (*admin.PurgeReport, error) {
			return env.admin.PurgeAccount(ctx, c.Target)
		})
	if err != nil {
		return err
	}
	return printResult(report.Details())
}

type AccountRoleCmd struct {
	Actor  uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Target uuid.UUID `help:"account id to update" required:""`
	Role   string    `help:"new global role" required:"" enum:"user,admin,superadmin"`
}

func (c *AccountRoleCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.admin.UpdateRole(as(ctx, c.Actor), c.Target, models.GlobalRole(c.Role)); err != nil {
		return err
	}
	return printResult(map[string]any{
		"account_id": c.Target.String(),
		"role":       c.Role,
	})
}
