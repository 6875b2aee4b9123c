package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/xdy-forks/foundry-simple-weather/internal/authority"
	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
	"github.com/xdy-forks/foundry-simple-weather/internal/i18n"
	"github.com/xdy-forks/foundry-simple-weather/internal/settings"
	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

// SettingsCmd groups the settings subcommands.
type SettingsCmd struct {
	List SettingsListCmd `cmd:"" help:"List every setting with its current value"`
	Get  SettingsGetCmd  `cmd:"" help:"Print one setting"`
	Set  SettingsSetCmd  `cmd:"" help:"Write one setting"`
}

// SettingsListCmd prints the registered settings.
type SettingsListCmd struct {
	All bool `help:"Include internal settings"`
}

func (c *SettingsListCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	bundle, err := i18n.Load(cfg.Localization.Dir)
	if err != nil {
		return err
	}
	rows, err := store.Describe(cmdContext(), bundle.Catalog(cfg.Localization.Locale))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSCOPE\tTYPE\tVALUE\tNAME")
	for _, row := range rows {
		if row.Visibility == settings.VisibilityInternal && !c.All {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.Key, row.Scope, row.Type, render(row.Value), row.Label)
	}
	return tw.Flush()
}

// SettingsGetCmd prints one decoded value as JSON.
type SettingsGetCmd struct {
	Key string `arg:"" help:"Setting key, e.g. dialogDisplay"`
}

func (c *SettingsGetCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	v, err := store.Get(cmdContext(), settings.Key(c.Key))
	if err != nil {
		return err
	}
	fmt.Fprintln(g.out(), render(v))
	return nil
}

// SettingsSetCmd writes one value. World settings are shared by the whole
// session and may only be written by the GM.
type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting key"`
	Value string `arg:"" help:"New value; JSON for structured settings"`
	Role  string `help:"Session role to act as (gm or observer); defaults to the configured role"`
}

func (c *SettingsSetCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	roleName := c.Role
	if roleName == "" {
		roleName = cfg.Session.Role
	}
	role, err := authority.ParseRole(roleName)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	def, err := store.Definition(settings.Key(c.Key))
	if err != nil {
		return err
	}
	if def.Scope == settings.ScopeWorld && role != authority.RoleGM {
		return errors.ValidationError("world settings can only be written by the gm").
			WithContext("key", c.Key).WithContext("role", role.String()).Build()
	}
	value, err := settings.ParseValue(def.Type, c.Value)
	if err != nil {
		return err
	}
	if err := store.Set(cmdContext(), def.Key, value); err != nil {
		return err
	}
	fmt.Fprintf(g.out(), "%s = %s\n", store.FullyQualified(def.Key), strings.TrimSpace(c.Value))
	return nil
}

func render(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case *weather.Data:
		if val == nil {
			return "null"
		}
		v = val.Record()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
