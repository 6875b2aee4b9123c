package commands

import (
	"fmt"

	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
	"github.com/xdy-forks/foundry-simple-weather/internal/versiongate"
)

// CheckCmd validates the configuration and runs the calendar version check
// without starting a process.
type CheckCmd struct{}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	w := g.out()
	fmt.Fprintf(w, "configuration ok (module %s, store %s, role %s)\n", cfg.Module.ID, cfg.Store.Driver, cfg.Session.Role)

	installed, found := versiongate.StaticRegistry(cfg.Dependencies).InstalledVersion(cfg.Module.CalendarDependency)
	res := versiongate.Check(cfg.Module.MinimumCalendarVersion, installed, found)
	if !res.Passed {
		shown := installed
		if !found {
			shown = "none"
		}
		return errors.DependencyError("calendar dependency missing or too old").
			WithContext("dependency", cfg.Module.CalendarDependency).
			WithContext("minimum", res.Minimum).
			WithContext("found", shown).
			Build()
	}
	fmt.Fprintf(w, "%s %s satisfies minimum %s\n", cfg.Module.CalendarDependency, installed, res.Minimum)
	return nil
}
