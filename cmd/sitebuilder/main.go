package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/blackspinne/lovable-cpannel/cmd/sitebuilder/commands"
	"github.com/blackspinne/lovable-cpannel/internal/logfields"
	"github.com/blackspinne/lovable-cpannel/internal/version"
)

func main() {
	var cli commands.CLI
	global := commands.NewGlobal()
	ctx := kong.Parse(&cli,
		kong.Name("sitebuilder"),
		kong.Description("Convert no-code project exports into static bundles served from a sub-path."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)
	if err := ctx.Run(&cli); err != nil {
		slog.Error("Command failed", slog.String("command", ctx.Command()), logfields.Error(err))
		os.Exit(1)
	}
}
