package commands

import (
	"context"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, true)
	if err != nil {
		return err
	}
	defer env.Close()

	env.log.Info().Msg("Schema is up to date")
	return nil
}
