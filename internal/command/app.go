// Package command builds the smartcache command line.
package command

import (
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/probablyarth/smartcache-go/internal/config"
)

// InitApp assembles the root command. Flag defaults come from the config
// file located by config.Path.
func InitApp() *cli.Command {
	cfgPath, _ := config.Path()

	app := &cli.Command{
		Name:  "smartcache",
		Usage: "coalescing TTL cache in front of a slow backend",
	}

	app.Commands = append(app.Commands,
		ServeCommandBuilder(cfgPath),
		SimulateCommandBuilder(cfgPath),
		ConfigCommandBuilder(),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app
}
