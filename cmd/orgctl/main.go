package main

import (
	"context"
	"time"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/orgkeeper/cmd/orgctl/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Migrate      commands.MigrateCmd      `cmd:"" help:"Apply database migrations"`
		Account      commands.AccountCmd      `cmd:"" help:"Manage accounts"`
		Org          commands.OrgCmd          `cmd:"" help:"Manage organizations"`
		Instructions commands.InstructionsCmd `cmd:"" help:"Manage instruction overrides"`

		Store             commands.StoreFlags `embed:"" prefix:"postgres-"`
		GlobalOverrideTTL time.Duration       `help:"how long global instruction overrides are cached" default:"5m" env:"ORGKEEPER_GLOBAL_OVERRIDE_TTL"`
		Tracing           bool                `help:"enable tracing" default:"false" env:"ORGKEEPER_TRACING"`
		Debug             bool                `help:"Enable debug mode."`
		Version           kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("orgctl"),
		kong.Description("Operator tooling for organizations, accounts and instruction overrides."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:   cli.Debug,
		Version: version,
		Tracing: cli.Tracing,
		Store:   cli.Store,

		GlobalOverrideTTL: cli.GlobalOverrideTTL,
	})
	cmd.FatalIfErrorf(err)
}
