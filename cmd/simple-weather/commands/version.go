package commands

import (
	"fmt"

	"github.com/xdy-forks/foundry-simple-weather/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (v *VersionCmd) Run(g *Global) error {
	fmt.Fprintln(g.out(), version.String())
	return nil
}
