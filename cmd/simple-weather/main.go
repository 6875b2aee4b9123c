package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/xdy-forks/foundry-simple-weather/cmd/simple-weather/commands"
	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
	"github.com/xdy-forks/foundry-simple-weather/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{Out: os.Stdout}

	ctx := kong.Parse(&cli,
		kong.Name("simple-weather"),
		kong.Description("Keeps weather in step with the session calendar across every process of a game session."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	if err := ctx.Run(global, &cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
