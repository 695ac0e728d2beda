package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/orgs"
	"gopkg.in/yaml.v3"
)

type InstructionsCmd struct {
	SetGlobal   InstructionsSetGlobalCmd   `cmd:"" help:"Replace the global instruction overrides"`
	SetOrg      InstructionsSetOrgCmd      `cmd:"" help:"Replace an organization's instruction overrides"`
	ResetGlobal InstructionsResetGlobalCmd `cmd:"" help:"Remove global overrides"`
	ResetOrg    InstructionsResetOrgCmd    `cmd:"" help:"Remove organization overrides"`
	Show        InstructionsShowCmd        `cmd:"" help:"Show stored overrides"`
	Resolve     InstructionsResolveCmd     `cmd:"" help:"Resolve effective values for keys"`
}

// overridesFile is the YAML layout accepted by the set commands:
//
//	overrides:
//	  system_prompt: "Answer in French."
type overridesFile struct {
	Overrides map[string]string `yaml:"overrides"`
}

// loadOverrides reads an overrides document. Unknown top level fields are rejected.
func loadOverrides(r io.Reader) (map[string]string, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f overridesFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("overrides file is empty")
		}
		return nil, fmt.Errorf("failed to parse overrides file: %w", err)
	}
	if len(f.Overrides) == 0 {
		return nil, errors.New("overrides file has no overrides, use a reset command to clear them")
	}
	return f.Overrides, nil
}

func loadOverridesFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open overrides file: %w", err)
	}
	defer f.Close()

	return loadOverrides(f)
}

type InstructionsSetGlobalCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	File  string    `help:"YAML overrides file" required:"" type:"existingfile"`
}

func (c *InstructionsSetGlobalCmd) Run(ctx context.Context, globals *Globals) error {
	values, err := loadOverridesFile(c.File)
	if err != nil {
		return err
	}

	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	set, err := env.overrides.SaveGlobal(as(ctx, c.Actor), values)
	if err != nil {
		return err
	}
	return printResult(instructionSetView(set))
}

type InstructionsSetOrgCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Org   uuid.UUID `help:"organization id" required:""`
	File  string    `help:"YAML overrides file" required:"" type:"existingfile"`
}

func (c *InstructionsSetOrgCmd) Run(ctx context.Context, globals *Globals) error {
	values, err := loadOverridesFile(c.File)
	if err != nil {
		return err
	}

	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	set, err := env.overrides.SaveOrganization(as(ctx, c.Actor), c.Org, values)
	if err != nil {
		return err
	}
	return printResult(instructionSetView(set))
}

type InstructionsResetGlobalCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Key   []string  `help:"keys to reset, all keys when omitted"`
}

func (c *InstructionsResetGlobalCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	set, err := env.overrides.ResetGlobal(as(ctx, c.Actor), c.Key...)
	if err != nil {
		return err
	}
	return printResult(instructionSetView(set))
}

type InstructionsResetOrgCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Org   uuid.UUID `help:"organization id" required:""`
	Key   []string  `help:"keys to reset, all keys when omitted"`
}

func (c *InstructionsResetOrgCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	set, err := env.overrides.ResetOrganization(as(ctx, c.Actor), c.Org, c.Key...)
	if err != nil {
		return err
	}
	return printResult(instructionSetView(set))
}

type InstructionsShowCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Org   string    `help:"organization id, the global set is shown when omitted"`
}

func (c *InstructionsShowCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx = as(ctx, c.Actor)

	var set *models.InstructionSet
	if c.Org == "" {
		set, err = env.overrides.LoadGlobal(ctx)
	} else {
		orgID, perr := uuid.Parse(c.Org)
		if perr != nil {
			return fmt.Errorf("invalid organization id: %w", perr)
		}
		set, err = env.overrides.LoadOrganization(ctx, orgID)
	}
	if err != nil {
		return err
	}
	return printResult(instructionSetView(set))
}

type InstructionsResolveCmd struct {
	Actor uuid.UUID `help:"acting account id" required:"" env:"ORGKEEPER_ACTOR"`
	Org   string    `help:"switch to this organization before resolving, the active organization is used when omitted"`
	Key   []string  `help:"keys to resolve" required:""`
}

func (c *InstructionsResolveCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx = as(ctx, c.Actor)
	session := orgs.NewSession(env.orgs, env.orgCache)

	var org *models.Organization
	if c.Org != "" {
		orgID, perr := uuid.Parse(c.Org)
		if perr != nil {
			return fmt.Errorf("invalid organization id: %w", perr)
		}
		org, err = session.SwitchOrganization(ctx, orgID)
	} else {
		org, err = session.ActiveOrganization(ctx)
	}
	if err != nil {
		return err
	}

	values := make([]map[string]any, 0, len(c.Key))
	for _, key := range c.Key {
		res, err := env.resolver.ResolveContext(ctx, key)
		if err != nil {
			return err
		}
		values = append(values, map[string]any{
			"key":    res.Key,
			"value":  res.Value,
			"source": res.Source.String(),
		})
	}

	out := map[string]any{"values": values}
	if org != nil {
		out["org_id"] = org.OrgID.String()
	}
	return printResult(out)
}

func instructionSetView(set *models.InstructionSet) map[string]any {
	out := map[string]any{
		"overrides":  set.Overrides,
		"updated_at": set.UpdatedAt,
	}
	if set.OrgID != nil {
		out["org_id"] = set.OrgID.String()
	}
	if set.UpdatedBy != nil {
		out["updated_by"] = set.UpdatedBy.String()
	}
	return out
}
